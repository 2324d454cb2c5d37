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

// Package builders constructs the Kubernetes child resources owned by a
// ServarrApp (Deployment, Service, PVCs, NetworkPolicy, Gateway API routes,
// cert-manager Certificates, ConfigMaps, Secrets) from its spec and the
// defaults registry. Each function is a pure builder: it takes the owning
// ServarrApp plus whatever extra inputs it needs and returns the desired
// object, leaving create-vs-update and field-ownership decisions to the
// controller.
package builders

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
)

// Manager is the value recorded in the app.kubernetes.io/managed-by label
// on every resource this operator creates.
const Manager = "servarr-operator"

// AppName returns the ServarrApp's name, defaulting to "unknown" for an
// unpersisted object (mirrors the Rust builder's defensive fallback even
// though controller-runtime guarantees a name on any fetched object).
func AppName(app *servarrv1alpha1.ServarrApp) string {
	if app.Name == "" {
		return "unknown"
	}
	return app.Name
}

// AppNamespace returns the ServarrApp's namespace, defaulting to "default".
func AppNamespace(app *servarrv1alpha1.ServarrApp) string {
	if app.Namespace == "" {
		return "default"
	}
	return app.Namespace
}

// ChildName computes the name of a child resource: "{app}-{suffix}", or
// just the app's name when suffix is empty.
func ChildName(app *servarrv1alpha1.ServarrApp, suffix string) string {
	name := AppName(app)
	if suffix == "" {
		return name
	}
	return name + "-" + suffix
}

// Labels returns the standard label set applied to every resource owned by
// app: name/instance/managed-by plus the servarr.dev/app type label and, if
// set, the servarr.dev/instance label.
func Labels(app *servarrv1alpha1.ServarrApp) map[string]string {
	appType := string(app.Spec.App)
	labels := map[string]string{
		"app.kubernetes.io/name":       appType,
		"app.kubernetes.io/instance":   AppName(app),
		"app.kubernetes.io/managed-by": Manager,
		"servarr.dev/app":              appType,
	}
	if app.Spec.Instance != nil {
		labels["servarr.dev/instance"] = *app.Spec.Instance
	}
	return labels
}

// SelectorLabels returns the minimal label set used to match pods to their
// owning Deployment/Service: just name and instance, stable across spec
// changes that don't rename the app.
func SelectorLabels(app *servarrv1alpha1.ServarrApp) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":     string(app.Spec.App),
		"app.kubernetes.io/instance": AppName(app),
	}
}

// ObjectMeta returns the ObjectMeta for a child resource named
// "{app}-{suffix}" in app's namespace, carrying the standard labels. The
// caller is still responsible for setting the owner reference via
// controllerutil.SetControllerReference, since that requires the scheme.
func ObjectMeta(app *servarrv1alpha1.ServarrApp, suffix string) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:      ChildName(app, suffix),
		Namespace: AppNamespace(app),
		Labels:    Labels(app),
	}
}

// SetOwner sets app as the controller owner of obj so it is garbage
// collected when app is deleted.
func SetOwner(app *servarrv1alpha1.ServarrApp, obj client.Object, scheme *runtime.Scheme) error {
	return controllerutil.SetControllerReference(app, obj, scheme)
}
