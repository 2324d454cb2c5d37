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
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
)

const (
	nfsManagedBy     = "servarr-operator"
	nfsServerPort    = 2049
	nfsComponent     = "nfs-server"
	nfsDefaultImage  = "itsthenetwork/nfs-server-alpine:12"
	nfsExportDir     = "/nfsshare"
	nfsDataVolume    = "data"
)

// NfsServerResourceName is the name of the StatefulSet/Service for stackName's
// in-cluster NFS server.
func NfsServerResourceName(stackName string) string {
	return fmt.Sprintf("%s-nfs-server", stackName)
}

func nfsServerLabels(stackName string) map[string]string {
	return map[string]string{
		"servarr.dev/stack":           stackName,
		"servarr.dev/component":       nfsComponent,
		"app.kubernetes.io/managed-by": nfsManagedBy,
	}
}

func nfsServerSelectorLabels(stackName string) map[string]string {
	return map[string]string{
		"servarr.dev/stack":     stackName,
		"servarr.dev/component": nfsComponent,
	}
}

// NfsServerStatefulSet builds the single-replica StatefulSet running the
// in-cluster NFS server, exporting nfsExportDir via NFS on port 2049.
func NfsServerStatefulSet(stackName, namespace string, nfs *servarrv1alpha1.NfsServerSpec) *appsv1.StatefulSet {
	name := NfsServerResourceName(stackName)
	labels := nfsServerLabels(stackName)
	selector := nfsServerSelectorLabels(stackName)

	image := nfsDefaultImage
	if nfs.Image != nil && nfs.Image.Repository != "" {
		tag := nfs.Image.Tag
		if tag == "" {
			tag = "latest"
		}
		image = fmt.Sprintf("%s:%s", nfs.Image.Repository, tag)
	}

	var storageClass *string
	if nfs.StorageClass != nil && *nfs.StorageClass != "" {
		storageClass = nfs.StorageClass
	}

	storageSize := nfs.StorageSize
	if storageSize == "" {
		storageSize = "1Ti"
	}

	volumeClaimTemplate := corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: nfsDataVolume},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			StorageClassName: storageClass,
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: resourceQuantity(storageSize)},
			},
		},
	}

	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: appsv1.StatefulSetSpec{
			Replicas:    int32Ptr(1),
			ServiceName: name,
			Selector:    &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: selector},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:            nfsComponent,
							Image:           image,
							ImagePullPolicy: corev1.PullIfNotPresent,
							Env: []corev1.EnvVar{
								{Name: "SHARED_DIRECTORY", Value: nfsExportDir},
							},
							Ports: []corev1.ContainerPort{
								{Name: "nfs", ContainerPort: nfsServerPort, Protocol: corev1.ProtocolTCP},
							},
							SecurityContext: &corev1.SecurityContext{
								Privileged: boolPtr(true),
							},
							VolumeMounts: []corev1.VolumeMount{
								{Name: nfsDataVolume, MountPath: nfsExportDir},
							},
						},
					},
				},
			},
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{volumeClaimTemplate},
		},
	}
}

// NfsServerService builds the ClusterIP Service fronting the in-cluster NFS
// server, reachable cluster-wide at
// "{stackName}-nfs-server.{namespace}.svc.cluster.local" on port 2049.
func NfsServerService(stackName, namespace string) *corev1.Service {
	name := NfsServerResourceName(stackName)

	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    nfsServerLabels(stackName),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: nfsServerSelectorLabels(stackName),
			Ports: []corev1.ServicePort{
				{
					Name:       "nfs",
					Port:       nfsServerPort,
					TargetPort: intstr.FromInt32(nfsServerPort),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

func int32Ptr(i int32) *int32 { return &i }
func boolPtr(b bool) *bool    { return &b }
