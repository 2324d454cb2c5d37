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

// Package webhook implements admission validation for ServarrApp.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
)

// ServarrAppValidator validates ServarrApp creates and updates. It is
// registered against the manager's webhook server; kube-apiserver calls it
// through the generated ValidatingWebhookConfiguration.
type ServarrAppValidator struct {
	Client client.Reader
}

var _ webhook.CustomValidator = &ServarrAppValidator{}

// SetupWebhookWithManager wires the validator into mgr's webhook server.
func SetupWebhookWithManager(mgr ctrl.Manager) error {
	return ctrl.NewWebhookManagedBy(mgr).
		For(&servarrv1alpha1.ServarrApp{}).
		WithValidator(&ServarrAppValidator{Client: mgr.GetClient()}).
		Complete()
}

// +kubebuilder:webhook:path=/validate-servarr-dev-v1alpha1-servarrapp,mutating=false,failurePolicy=fail,sideEffects=None,groups=servarr.dev,resources=servarrapps,verbs=create;update,versions=v1alpha1,name=vservarrapp.servarr.dev,admissionReviewVersions=v1

func (v *ServarrAppValidator) ValidateCreate(ctx context.Context, obj runtime.Object) (admission.Warnings, error) {
	app, ok := obj.(*servarrv1alpha1.ServarrApp)
	if !ok {
		return nil, fmt.Errorf("expected a ServarrApp, got %T", obj)
	}
	log := logf.FromContext(ctx)
	log.V(1).Info("validating ServarrApp create", "name", app.Name, "app", app.Spec.App)

	var errs []string
	validateAppConfigMatch(app, &errs)
	validatePortRanges(app, &errs)
	validateResourceBounds(app, &errs)
	validateGatewayHosts(app, &errs)
	validateUniqueVolumeNames(app, &errs)
	if app.Namespace != "" {
		v.validateNoDuplicateInstance(ctx, app, &errs)
	}
	validateTransmissionSettings(app, &errs)
	validateBackupRetention(app, &errs)
	validateIndexerDefinitionNames(app, &errs)

	return nil, asError(errs)
}

func (v *ServarrAppValidator) ValidateUpdate(ctx context.Context, oldObj, newObj runtime.Object) (admission.Warnings, error) {
	app, ok := newObj.(*servarrv1alpha1.ServarrApp)
	if !ok {
		return nil, fmt.Errorf("expected a ServarrApp, got %T", newObj)
	}
	old, ok := oldObj.(*servarrv1alpha1.ServarrApp)
	if !ok {
		return nil, fmt.Errorf("expected a ServarrApp, got %T", oldObj)
	}

	var errs []string
	validateAppConfigMatch(app, &errs)
	validatePortRanges(app, &errs)
	validateResourceBounds(app, &errs)
	validateGatewayHosts(app, &errs)
	validateUniqueVolumeNames(app, &errs)
	validateIdentityImmutable(app, old, &errs)
	validateTransmissionSettings(app, &errs)
	validateBackupRetention(app, &errs)
	validateIndexerDefinitionNames(app, &errs)

	return nil, asError(errs)
}

func (v *ServarrAppValidator) ValidateDelete(ctx context.Context, obj runtime.Object) (admission.Warnings, error) {
	return nil, nil
}

func asError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

// validateIdentityImmutable rejects changing spec.app or spec.instance on an
// existing ServarrApp; both are used as the identity key for sibling lookup
// (duplicate detection, Prowlarr/Overseerr sync) and changing them out from
// under a running Deployment would orphan its child resources.
func validateIdentityImmutable(app, old *servarrv1alpha1.ServarrApp, errs *[]string) {
	if old.Spec.App != app.Spec.App {
		*errs = append(*errs, fmt.Sprintf("spec.app is immutable (was %q, got %q)", old.Spec.App, app.Spec.App))
	}
	if stringValue(old.Spec.Instance) != stringValue(app.Spec.Instance) {
		*errs = append(*errs, fmt.Sprintf("spec.instance is immutable (was %q, got %q)", stringValue(old.Spec.Instance), stringValue(app.Spec.Instance)))
	}
}

// validateAppConfigMatch enforces that AppConfig, a tagged union expressed
// as a struct of *SubConfig pointers, only sets the sub-config matching
// Spec.App.
func validateAppConfigMatch(app *servarrv1alpha1.ServarrApp, errs *[]string) {
	config := app.Spec.AppConfig
	if config == nil {
		return
	}
	set := map[servarrv1alpha1.AppType]bool{
		servarrv1alpha1.AppTransmission: config.Transmission != nil,
		servarrv1alpha1.AppSabnzbd:      config.Sabnzbd != nil,
		servarrv1alpha1.AppProwlarr:     config.Prowlarr != nil,
		servarrv1alpha1.AppSshBastion:   config.SshBastion != nil,
		servarrv1alpha1.AppOverseerr:    config.Overseerr != nil,
	}
	for appType, isSet := range set {
		if isSet && appType != app.Spec.App {
			*errs = append(*errs, fmt.Sprintf("appConfig.%s is set but spec.app is %q", appType, app.Spec.App))
		}
	}
}

func checkPort(port int32, label string, errs *[]string) {
	if port < 1 || port > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port %d out of range 1-65535", label, port))
	}
}

func validatePortRanges(app *servarrv1alpha1.ServarrApp, errs *[]string) {
	if svc := app.Spec.Service; svc != nil {
		for _, p := range svc.Ports {
			checkPort(p.Port, fmt.Sprintf("service.ports[%s].port", p.Name), errs)
			if p.ContainerPort != nil {
				checkPort(*p.ContainerPort, fmt.Sprintf("service.ports[%s].containerPort", p.Name), errs)
			}
			if p.HostPort != nil {
				checkPort(*p.HostPort, fmt.Sprintf("service.ports[%s].hostPort", p.Name), errs)
			}
		}
	}

	if config := app.Spec.AppConfig; config != nil && config.Transmission != nil && config.Transmission.PeerPort != nil {
		checkPort(config.Transmission.PeerPort.Port, "appConfig.transmission.peerPort.port", errs)
	}
}

func validateResourceBounds(app *servarrv1alpha1.ServarrApp, errs *[]string) {
	res := app.Spec.Resources
	if res == nil {
		return
	}
	if limit, ok := parseQuantity(res.Limits.Cpu); ok {
		if req, ok := parseQuantity(res.Requests.Cpu); ok && limit.Cmp(req) < 0 {
			*errs = append(*errs, fmt.Sprintf("resources.limits.cpu (%s) must be >= resources.requests.cpu (%s)", res.Limits.Cpu, res.Requests.Cpu))
		}
	}
	if limit, ok := parseQuantity(res.Limits.Memory); ok {
		if req, ok := parseQuantity(res.Requests.Memory); ok && limit.Cmp(req) < 0 {
			*errs = append(*errs, fmt.Sprintf("resources.limits.memory (%s) must be >= resources.requests.memory (%s)", res.Limits.Memory, res.Requests.Memory))
		}
	}
}

func parseQuantity(s string) (resource.Quantity, bool) {
	if s == "" {
		return resource.Quantity{}, false
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return resource.Quantity{}, false
	}
	return q, true
}

func validateGatewayHosts(app *servarrv1alpha1.ServarrApp, errs *[]string) {
	gw := app.Spec.Gateway
	if gw != nil && gw.Enabled && len(gw.Hosts) == 0 {
		*errs = append(*errs, "gateway.hosts must be non-empty when gateway is enabled")
	}
}

func validateUniqueVolumeNames(app *servarrv1alpha1.ServarrApp, errs *[]string) {
	p := app.Spec.Persistence
	if p == nil {
		return
	}
	seen := make(map[string]bool, len(p.Volumes))
	for _, v := range p.Volumes {
		if seen[v.Name] {
			*errs = append(*errs, fmt.Sprintf("duplicate volume name: %q", v.Name))
		}
		seen[v.Name] = true
	}
	nfsSeen := make(map[string]bool, len(p.NfsMounts))
	for _, nfs := range p.NfsMounts {
		if nfsSeen[nfs.Name] {
			*errs = append(*errs, fmt.Sprintf("duplicate nfsMount name: %q", nfs.Name))
		}
		nfsSeen[nfs.Name] = true
	}
}

// validateNoDuplicateInstance rejects creating a second ServarrApp with the
// same app type and instance in the same namespace — AppName derives from
// exactly that pair, so a duplicate would collide on the same Deployment.
func (v *ServarrAppValidator) validateNoDuplicateInstance(ctx context.Context, app *servarrv1alpha1.ServarrApp, errs *[]string) {
	if v.Client == nil {
		return
	}
	log := logf.FromContext(ctx)
	var list servarrv1alpha1.ServarrAppList
	if err := v.Client.List(ctx, &list, client.InNamespace(app.Namespace)); err != nil {
		log.Info("failed to list ServarrApps for duplicate check", "error", err.Error())
		return
	}

	newInstance := stringValue(app.Spec.Instance)
	for i := range list.Items {
		existing := &list.Items[i]
		if existing.Name == app.Name {
			continue
		}
		if existing.Spec.App == app.Spec.App && stringValue(existing.Spec.Instance) == newInstance {
			desc := "(default)"
			if newInstance != "" {
				desc = fmt.Sprintf("%q", newInstance)
			}
			*errs = append(*errs, fmt.Sprintf("a ServarrApp with app=%s instance=%s already exists in namespace %s", app.Spec.App, desc, app.Namespace))
			return
		}
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func validateTransmissionSettings(app *servarrv1alpha1.ServarrApp, errs *[]string) {
	config := app.Spec.AppConfig
	if config == nil || config.Transmission == nil || config.Transmission.Settings.Raw == nil {
		return
	}
	var settings map[string]interface{}
	if err := json.Unmarshal(config.Transmission.Settings.Raw, &settings); err != nil {
		return
	}
	for _, key := range servarrv1alpha1.TransmissionManagedKeys {
		if _, ok := settings[key]; ok {
			*errs = append(*errs, fmt.Sprintf("appConfig.transmission.settings must not contain operator-managed key %q", key))
		}
	}
}

func validateBackupRetention(app *servarrv1alpha1.ServarrApp, errs *[]string) {
	b := app.Spec.Backup
	if b != nil && b.Enabled && b.RetentionCount == 0 {
		*errs = append(*errs, "backup.retentionCount must be >= 1 when backups are enabled")
	}
}

func validateIndexerDefinitionNames(app *servarrv1alpha1.ServarrApp, errs *[]string) {
	config := app.Spec.AppConfig
	if config == nil || config.Prowlarr == nil {
		return
	}
	for _, def := range config.Prowlarr.CustomDefinitions {
		if def.Name == "" || strings.TrimFunc(def.Name, isAlphanumericOrHyphen) != "" {
			*errs = append(*errs, fmt.Sprintf("appConfig.prowlarr.customDefinitions[].name %q must be non-empty and contain only alphanumeric characters or hyphens", def.Name))
		}
	}
}

func isAlphanumericOrHyphen(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-'
}
