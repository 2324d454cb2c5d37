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

// Service builds the Service exposing app's container ports in-cluster.
func Service(app *servarrv1alpha1.ServarrApp) *corev1.Service {
	d := defaults.For(app.Spec.App)
	svc := &d.Service
	if app.Spec.Service != nil {
		svc = app.Spec.Service
	}

	ports := make([]corev1.ServicePort, 0, len(svc.Ports)+2)
	for _, p := range svc.Ports {
		protocol := corev1.Protocol(p.Protocol)
		if protocol == "" {
			protocol = corev1.ProtocolTCP
		}
		ports = append(ports, corev1.ServicePort{Name: p.Name, Port: p.Port, Protocol: protocol})
	}

	if app.Spec.App == servarrv1alpha1.AppTransmission {
		var peer *servarrv1alpha1.PeerPortConfig
		if tc := transmissionConfig(app); tc != nil {
			peer = tc.PeerPort
		}
		if peer != nil {
			ports = append(ports,
				corev1.ServicePort{Name: "peer-tcp", Port: peer.Port, Protocol: corev1.ProtocolTCP},
				corev1.ServicePort{Name: "peer-udp", Port: peer.Port, Protocol: corev1.ProtocolUDP},
			)
		}
	}

	serviceType := svc.ServiceType
	if serviceType == "" {
		serviceType = "ClusterIP"
	}

	return &corev1.Service{
		ObjectMeta: ObjectMeta(app, ""),
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceType(serviceType),
			Selector: SelectorLabels(app),
			Ports:    ports,
		},
	}
}
