/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package webhook

import (
	"context"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
)

func strPtr(s string) *string { return &s }
func i32Ptr(i int32) *int32   { return &i }

func baseApp(appType servarrv1alpha1.AppType) *servarrv1alpha1.ServarrApp {
	return &servarrv1alpha1.ServarrApp{
		ObjectMeta: metav1.ObjectMeta{Name: "test", Namespace: "media"},
		Spec:       servarrv1alpha1.ServarrAppSpec{App: appType},
	}
}

func TestValidateAppConfigMatchRejectsMismatch(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppSonarr)
	app.Spec.AppConfig = &servarrv1alpha1.AppConfig{
		Transmission: &servarrv1alpha1.TransmissionConfig{},
	}
	var errs []string
	validateAppConfigMatch(app, &errs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateAppConfigMatchAllowsMatching(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppProwlarr)
	app.Spec.AppConfig = &servarrv1alpha1.AppConfig{
		Prowlarr: &servarrv1alpha1.ProwlarrConfig{},
	}
	var errs []string
	validateAppConfigMatch(app, &errs)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidatePortRangesOutOfBounds(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppSonarr)
	app.Spec.Service = &servarrv1alpha1.ServiceSpec{
		Ports: []servarrv1alpha1.ServicePort{
			{Name: "http", Port: 70000},
			{Name: "extra", Port: 8989, ContainerPort: i32Ptr(0)},
		},
	}
	var errs []string
	validatePortRanges(app, &errs)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestValidatePortRangesTransmissionPeerPort(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppTransmission)
	app.Spec.AppConfig = &servarrv1alpha1.AppConfig{
		Transmission: &servarrv1alpha1.TransmissionConfig{
			PeerPort: &servarrv1alpha1.PeerPortConfig{Port: 99999},
		},
	}
	var errs []string
	validatePortRanges(app, &errs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateResourceBoundsLimitBelowRequest(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppSonarr)
	app.Spec.Resources = &servarrv1alpha1.ResourceRequirements{
		Limits:   servarrv1alpha1.ResourceList{Cpu: "500m", Memory: "256Mi"},
		Requests: servarrv1alpha1.ResourceList{Cpu: "1", Memory: "512Mi"},
	}
	var errs []string
	validateResourceBounds(app, &errs)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestValidateResourceBoundsOk(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppSonarr)
	app.Spec.Resources = &servarrv1alpha1.ResourceRequirements{
		Limits:   servarrv1alpha1.ResourceList{Cpu: "1", Memory: "512Mi"},
		Requests: servarrv1alpha1.ResourceList{Cpu: "500m", Memory: "256Mi"},
	}
	var errs []string
	validateResourceBounds(app, &errs)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateGatewayHostsRequiredWhenEnabled(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppSonarr)
	app.Spec.Gateway = &servarrv1alpha1.GatewaySpec{Enabled: true}
	var errs []string
	validateGatewayHosts(app, &errs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateUniqueVolumeNamesDetectsDuplicates(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppSonarr)
	app.Spec.Persistence = &servarrv1alpha1.PersistenceSpec{
		Volumes: []servarrv1alpha1.PvcVolume{
			{Name: "config", MountPath: "/config"},
			{Name: "config", MountPath: "/config2"},
		},
	}
	var errs []string
	validateUniqueVolumeNames(app, &errs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateIdentityImmutableRejectsAppChange(t *testing.T) {
	old := baseApp(servarrv1alpha1.AppSonarr)
	updated := baseApp(servarrv1alpha1.AppRadarr)
	var errs []string
	validateIdentityImmutable(updated, old, &errs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateIdentityImmutableRejectsInstanceChange(t *testing.T) {
	old := baseApp(servarrv1alpha1.AppSonarr)
	old.Spec.Instance = strPtr("4k")
	updated := baseApp(servarrv1alpha1.AppSonarr)
	updated.Spec.Instance = strPtr("anime")
	var errs []string
	validateIdentityImmutable(updated, old, &errs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateIdentityImmutableAllowsUnchanged(t *testing.T) {
	old := baseApp(servarrv1alpha1.AppSonarr)
	updated := baseApp(servarrv1alpha1.AppSonarr)
	var errs []string
	validateIdentityImmutable(updated, old, &errs)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateTransmissionSettingsRejectsManagedKey(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppTransmission)
	app.Spec.AppConfig = &servarrv1alpha1.AppConfig{
		Transmission: &servarrv1alpha1.TransmissionConfig{
			Settings: apiextensionsv1.JSON{Raw: []byte(`{"rpc-username":"admin","download-dir":"/downloads"}`)},
		},
	}
	var errs []string
	validateTransmissionSettings(app, &errs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateTransmissionSettingsAllowsUnmanagedKeys(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppTransmission)
	app.Spec.AppConfig = &servarrv1alpha1.AppConfig{
		Transmission: &servarrv1alpha1.TransmissionConfig{
			Settings: apiextensionsv1.JSON{Raw: []byte(`{"download-dir":"/downloads"}`)},
		},
	}
	var errs []string
	validateTransmissionSettings(app, &errs)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateBackupRetentionRequiresPositiveCount(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppSonarr)
	app.Spec.Backup = &servarrv1alpha1.BackupSpec{Enabled: true, RetentionCount: 0}
	var errs []string
	validateBackupRetention(app, &errs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateIndexerDefinitionNamesRejectsInvalidChars(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppProwlarr)
	app.Spec.AppConfig = &servarrv1alpha1.AppConfig{
		Prowlarr: &servarrv1alpha1.ProwlarrConfig{
			CustomDefinitions: []servarrv1alpha1.IndexerDefinition{
				{Name: "my_tracker!", Content: "x"},
				{Name: "my-private-tracker", Content: "x"},
			},
		},
	}
	var errs []string
	validateIndexerDefinitionNames(app, &errs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateCreateAggregatesErrors(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppSonarr)
	app.Spec.Gateway = &servarrv1alpha1.GatewaySpec{Enabled: true}
	app.Spec.Backup = &servarrv1alpha1.BackupSpec{Enabled: true, RetentionCount: 0}

	v := &ServarrAppValidator{}
	_, err := v.ValidateCreate(context.Background(), app)
	if err == nil {
		t.Fatal("expected an aggregated validation error")
	}
}

func TestValidateCreateAllowsCleanSpec(t *testing.T) {
	app := baseApp(servarrv1alpha1.AppSonarr)
	v := &ServarrAppValidator{}
	_, err := v.ValidateCreate(context.Background(), app)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
