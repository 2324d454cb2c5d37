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
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/defaults"
)

// DefaultDeniedCidrs are the RFC 1918 private ranges excluded from
// internet-egress NetworkPolicies when the app doesn't override them.
var DefaultDeniedCidrs = []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

const nfsPort = 2049

// NetworkPolicy builds the NetworkPolicy for app.
func NetworkPolicy(app *servarrv1alpha1.ServarrApp) *networkingv1.NetworkPolicy {
	d := defaults.For(app.Spec.App)
	svcSpec := &d.Service
	if app.Spec.Service != nil {
		svcSpec = app.Spec.Service
	}

	config := servarrv1alpha1.NetworkPolicyConfig{AllowSameNamespace: true, AllowDns: true}
	if app.Spec.NetworkPolicyConfig != nil {
		config = *app.Spec.NetworkPolicyConfig
	}

	var extraEgress []networkingv1.NetworkPolicyEgressRule
	if app.Spec.App == servarrv1alpha1.AppSshBastion {
		persistence := &d.Persistence
		if app.Spec.Persistence != nil {
			persistence = app.Spec.Persistence
		}
		if len(persistence.NfsMounts) > 0 {
			extraEgress = append(extraEgress, networkingv1.NetworkPolicyEgressRule{
				To: []networkingv1.NetworkPolicyPeer{
					{IPBlock: &networkingv1.IPBlock{CIDR: "10.0.0.0/8"}},
					{IPBlock: &networkingv1.IPBlock{CIDR: "172.16.0.0/12"}},
					{IPBlock: &networkingv1.IPBlock{CIDR: "192.168.0.0/16"}},
				},
				Ports: []networkingv1.NetworkPolicyPort{
					{Protocol: protoPtr("TCP"), Port: intOrStringPtr(nfsPort)},
				},
			})
		}
	}

	appPorts := make([]networkingv1.NetworkPolicyPort, 0, len(svcSpec.Ports))
	for _, p := range svcSpec.Ports {
		protocol := p.Protocol
		if protocol == "" {
			protocol = "TCP"
		}
		appPorts = append(appPorts, networkingv1.NetworkPolicyPort{
			Port:     intOrStringPtr(p.Port),
			Protocol: protoPtr(protocol),
		})
	}

	return &networkingv1.NetworkPolicy{
		ObjectMeta: ObjectMeta(app, ""),
		Spec: networkingv1.NetworkPolicySpec{
			PodSelector: metav1.LabelSelector{MatchLabels: SelectorLabels(app)},
			Ingress:     buildIngressRules(app, config, appPorts),
			Egress:      append(buildEgressRules(config), extraEgress...),
			PolicyTypes: []networkingv1.PolicyType{networkingv1.PolicyTypeIngress, networkingv1.PolicyTypeEgress},
		},
	}
}

func buildIngressRules(app *servarrv1alpha1.ServarrApp, config servarrv1alpha1.NetworkPolicyConfig, appPorts []networkingv1.NetworkPolicyPort) []networkingv1.NetworkPolicyIngressRule {
	var rules []networkingv1.NetworkPolicyIngressRule

	if config.AllowSameNamespace {
		rules = append(rules, networkingv1.NetworkPolicyIngressRule{
			From:  []networkingv1.NetworkPolicyPeer{{PodSelector: &metav1.LabelSelector{}}},
			Ports: appPorts,
		})
	}

	if gw := app.Spec.Gateway; gw != nil && gw.Enabled {
		for _, pr := range gw.ParentRefs {
			if pr.Namespace != "" {
				rules = append(rules, networkingv1.NetworkPolicyIngressRule{
					From: []networkingv1.NetworkPolicyPeer{{
						NamespaceSelector: &metav1.LabelSelector{
							MatchLabels: map[string]string{"kubernetes.io/metadata.name": pr.Namespace},
						},
					}},
					Ports: appPorts,
				})
			}
		}
	}

	if app.Spec.App == servarrv1alpha1.AppSshBastion {
		rules = append(rules, networkingv1.NetworkPolicyIngressRule{
			From:  []networkingv1.NetworkPolicyPeer{{IPBlock: &networkingv1.IPBlock{CIDR: "0.0.0.0/0"}}},
			Ports: appPorts,
		})
	}

	if tc := transmissionConfig(app); tc != nil && tc.PeerPort != nil {
		peer := tc.PeerPort
		rules = append(rules, networkingv1.NetworkPolicyIngressRule{
			From: []networkingv1.NetworkPolicyPeer{{IPBlock: &networkingv1.IPBlock{CIDR: "0.0.0.0/0"}}},
			Ports: []networkingv1.NetworkPolicyPort{
				{Protocol: protoPtr("TCP"), Port: intOrStringPtr(peer.Port)},
				{Protocol: protoPtr("UDP"), Port: intOrStringPtr(peer.Port)},
			},
		})
	}

	return rules
}

func buildEgressRules(config servarrv1alpha1.NetworkPolicyConfig) []networkingv1.NetworkPolicyEgressRule {
	rules := []networkingv1.NetworkPolicyEgressRule{
		{To: []networkingv1.NetworkPolicyPeer{{PodSelector: &metav1.LabelSelector{}}}},
	}

	if config.AllowDns {
		rules = append(rules, networkingv1.NetworkPolicyEgressRule{
			To: []networkingv1.NetworkPolicyPeer{{
				NamespaceSelector: &metav1.LabelSelector{},
				PodSelector:       &metav1.LabelSelector{MatchLabels: map[string]string{"k8s-app": "kube-dns"}},
			}},
			Ports: []networkingv1.NetworkPolicyPort{
				{Protocol: protoPtr("UDP"), Port: intOrStringPtr(53)},
			},
		})
	}

	if config.AllowInternetEgress {
		except := DefaultDeniedCidrs
		if len(config.DeniedCidrBlocks) > 0 {
			except = config.DeniedCidrBlocks
		}
		rules = append(rules, networkingv1.NetworkPolicyEgressRule{
			To: []networkingv1.NetworkPolicyPeer{{IPBlock: &networkingv1.IPBlock{CIDR: "0.0.0.0/0", Except: except}}},
		})
	}

	for _, custom := range config.CustomEgressRules {
		rule := networkingv1.NetworkPolicyEgressRule{}
		if custom.CidrBlock != "" {
			rule.To = []networkingv1.NetworkPolicyPeer{{IPBlock: &networkingv1.IPBlock{CIDR: custom.CidrBlock}}}
		}
		for _, p := range custom.Ports {
			protocol := p.Protocol
			if protocol == "" {
				protocol = "TCP"
			}
			rule.Ports = append(rule.Ports, networkingv1.NetworkPolicyPort{
				Protocol: protoPtr(protocol),
				Port:     intOrStringPtr(p.Port),
			})
		}
		rules = append(rules, rule)
	}

	return rules
}

func protoPtr(s string) *networkingv1.Protocol {
	// corev1.Protocol and networkingv1.Protocol both resolve to the string
	// names used by NetworkPolicyPort.
	p := networkingv1.Protocol(s)
	return &p
}

func intOrStringPtr(i int32) *intstr.IntOrString {
	v := intstr.FromInt32(i)
	return &v
}
