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

package builders

import (
	corev1 "k8s.io/api/core/v1"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/defaults"
)

// PersistentVolumeClaims builds one PVC per PVC-backed volume in app's
// persistence config.
func PersistentVolumeClaims(app *servarrv1alpha1.ServarrApp) []*corev1.PersistentVolumeClaim {
	d := defaults.For(app.Spec.App)
	persistence := &d.Persistence
	if app.Spec.Persistence != nil {
		persistence = app.Spec.Persistence
	}

	pvcs := make([]*corev1.PersistentVolumeClaim, 0, len(persistence.Volumes))
	for _, v := range persistence.Volumes {
		pvcs = append(pvcs, buildPvc(app, v))
	}
	return pvcs
}

func buildPvc(app *servarrv1alpha1.ServarrApp, vol servarrv1alpha1.PvcVolume) *corev1.PersistentVolumeClaim {
	var storageClass *string
	if vol.StorageClass != "" {
		storageClass = &vol.StorageClass
	}

	accessMode := vol.AccessMode
	if accessMode == "" {
		accessMode = "ReadWriteOnce"
	}

	return &corev1.PersistentVolumeClaim{
		ObjectMeta: ObjectMeta(app, vol.Name),
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.PersistentVolumeAccessMode(accessMode)},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: resourceQuantity(vol.Size)},
			},
			StorageClassName: storageClass,
		},
	}
}
