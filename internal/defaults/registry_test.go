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

package defaults

import (
	"testing"

	. "github.com/onsi/gomega"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
)

func TestForAllAppTypesHaveDefaults(t *testing.T) {
	g := NewWithT(t)

	apps := []servarrv1alpha1.AppType{
		servarrv1alpha1.AppSonarr, servarrv1alpha1.AppRadarr, servarrv1alpha1.AppLidarr,
		servarrv1alpha1.AppProwlarr, servarrv1alpha1.AppSabnzbd, servarrv1alpha1.AppTransmission,
		servarrv1alpha1.AppTautulli, servarrv1alpha1.AppOverseerr, servarrv1alpha1.AppMaintainerr,
		servarrv1alpha1.AppJackett, servarrv1alpha1.AppJellyfin, servarrv1alpha1.AppPlex,
		servarrv1alpha1.AppSshBastion,
	}

	for _, app := range apps {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("For(%s) panicked: %v", app, r)
				}
			}()
			d := For(app)
			g.Expect(d.Image.Repository).NotTo(BeEmpty())
			g.Expect(d.Service.Ports).NotTo(BeEmpty())
		}()
	}
}

func TestForUnknownAppPanics(t *testing.T) {
	g := NewWithT(t)
	g.Expect(func() { For(servarrv1alpha1.AppType("does-not-exist")) }).To(Panic())
}

func TestForLinuxServerIncludesDownloadsVolume(t *testing.T) {
	g := NewWithT(t)
	d := For(servarrv1alpha1.AppSonarr)
	g.Expect(d.Persistence.Volumes).To(HaveLen(2))
	g.Expect(d.Persistence.Volumes[1].Name).To(Equal("downloads"))
}

func TestForProwlarrHasNoDownloadsVolume(t *testing.T) {
	g := NewWithT(t)
	d := For(servarrv1alpha1.AppProwlarr)
	g.Expect(d.Persistence.Volumes).To(HaveLen(1))
}

func TestForSshBastionUsesTcpProbesAndRootIdentity(t *testing.T) {
	g := NewWithT(t)
	d := For(servarrv1alpha1.AppSshBastion)
	g.Expect(d.Probes.Liveness.ProbeType).To(Equal(servarrv1alpha1.ProbeTypeTCP))
	g.Expect(d.Uid).To(Equal(int64(0)))
	g.Expect(d.Security.ProfileType).To(Equal(servarrv1alpha1.SecurityProfileCustom))
}

func TestForTransmissionSeedsAppConfig(t *testing.T) {
	g := NewWithT(t)
	d := For(servarrv1alpha1.AppTransmission)
	g.Expect(d.AppConfig).NotTo(BeNil())
	g.Expect(d.AppConfig.Transmission).NotTo(BeNil())
}

func TestForOtherAppsLeaveAppConfigNil(t *testing.T) {
	g := NewWithT(t)
	d := For(servarrv1alpha1.AppSonarr)
	g.Expect(d.AppConfig).To(BeNil())
}
