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

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/defaults"
)

// Gateway API and cert-manager types aren't vendored alongside the core
// client-go/apimachinery types this operator otherwise builds against, so
// these resources are assembled as unstructured objects rather than typed
// structs.

// HTTPRoute builds a gateway.networking.k8s.io/v1 HTTPRoute for app when its
// Gateway is enabled and TLS isn't forcing TCP pass-through. Returns nil
// otherwise.
func HTTPRoute(app *servarrv1alpha1.ServarrApp) *unstructured.Unstructured {
	gw := app.Spec.Gateway
	if gw == nil || !gw.Enabled {
		return nil
	}
	if useTCPRoute(gw) {
		return nil
	}

	name := AppName(app)
	firstPort := FirstServicePort(app)

	route := &unstructured.Unstructured{}
	route.SetUnstructuredContent(map[string]interface{}{
		"apiVersion": "gateway.networking.k8s.io/v1",
		"kind":       "HTTPRoute",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": AppNamespace(app),
			"labels":    toStringInterfaceMap(Labels(app)),
		},
		"spec": map[string]interface{}{
			"parentRefs": parentRefsJSON(gw.ParentRefs),
			"hostnames":  stringsToInterfaces(gw.Hosts),
			"rules": []interface{}{
				map[string]interface{}{
					"backendRefs": []interface{}{
						map[string]interface{}{
							"name": name,
							"port": int64(firstPort),
						},
					},
				},
			},
		},
	})
	return route
}

// TCPRoute builds a gateway.networking.k8s.io/v1alpha2 TCPRoute for TLS
// pass-through. Returns nil unless the gateway is enabled and RouteType is
// Tcp, or TLS is enabled (which forces TCP mode).
func TCPRoute(app *servarrv1alpha1.ServarrApp) *unstructured.Unstructured {
	gw := app.Spec.Gateway
	if gw == nil || !gw.Enabled {
		return nil
	}
	if !useTCPRoute(gw) {
		return nil
	}

	name := AppName(app)
	firstPort := FirstServicePort(app)

	route := &unstructured.Unstructured{}
	route.SetUnstructuredContent(map[string]interface{}{
		"apiVersion": "gateway.networking.k8s.io/v1alpha2",
		"kind":       "TCPRoute",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": AppNamespace(app),
			"labels":    toStringInterfaceMap(Labels(app)),
		},
		"spec": map[string]interface{}{
			"parentRefs": parentRefsJSON(gw.ParentRefs),
			"rules": []interface{}{
				map[string]interface{}{
					"backendRefs": []interface{}{
						map[string]interface{}{
							"name": name,
							"port": int64(firstPort),
						},
					},
				},
			},
		},
	})
	return route
}

// Certificate builds a cert-manager.io/v1 Certificate for app when the
// gateway is enabled with TLS configured and a CertIssuer set. Returns nil
// otherwise.
func Certificate(app *servarrv1alpha1.ServarrApp) *unstructured.Unstructured {
	gw := app.Spec.Gateway
	if gw == nil || !gw.Enabled || gw.Tls == nil {
		return nil
	}
	tls := gw.Tls
	if !tls.Enabled || tls.CertIssuer == "" {
		return nil
	}

	name := AppName(app)
	secretName := fmt.Sprintf("%s-tls", name)
	if tls.SecretName != nil && *tls.SecretName != "" {
		secretName = *tls.SecretName
	}

	cert := &unstructured.Unstructured{}
	cert.SetUnstructuredContent(map[string]interface{}{
		"apiVersion": "cert-manager.io/v1",
		"kind":       "Certificate",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": AppNamespace(app),
			"labels":    toStringInterfaceMap(Labels(app)),
		},
		"spec": map[string]interface{}{
			"secretName": secretName,
			"dnsNames":   stringsToInterfaces(gw.Hosts),
			"issuerRef": map[string]interface{}{
				"name": tls.CertIssuer,
				"kind": "ClusterIssuer",
			},
		},
	})
	return cert
}

func useTCPRoute(gw *servarrv1alpha1.GatewaySpec) bool {
	return gw.RouteType == servarrv1alpha1.RouteTypeTCP || (gw.Tls != nil && gw.Tls.Enabled)
}

// FirstServicePort returns the first configured Service port for app, or
// 80 when none is configured.
func FirstServicePort(app *servarrv1alpha1.ServarrApp) int32 {
	d := defaults.For(app.Spec.App)
	svc := &d.Service
	if app.Spec.Service != nil {
		svc = app.Spec.Service
	}
	if len(svc.Ports) == 0 {
		return 80
	}
	return svc.Ports[0].Port
}

func parentRefsJSON(refs []servarrv1alpha1.GatewayParentRef) []interface{} {
	out := make([]interface{}, 0, len(refs))
	for _, pr := range refs {
		ref := map[string]interface{}{"name": pr.Name}
		if pr.Namespace != "" {
			ref["namespace"] = pr.Namespace
		}
		if pr.SectionName != "" {
			ref["sectionName"] = pr.SectionName
		}
		out = append(out, ref)
	}
	return out
}

func stringsToInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func toStringInterfaceMap(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
