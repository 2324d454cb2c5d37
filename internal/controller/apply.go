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

package controller

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// fieldManager is the field manager used when the ServarrApp reconciler
// force-applies a child resource, the Go equivalent of the original's
// PatchParams::apply(FIELD_MANAGER).force().
const fieldManager = "servarr-operator"

// stackFieldManager is the field manager used when the MediaStack
// reconciler force-applies its expanded ServarrApp children and the shared
// NFS server resources, matching the original's stack-level field manager.
const stackFieldManager = "servarr-operator-stack"

// ensureGVK fills in obj's GroupVersionKind from scheme when the caller
// built it as a bare typed struct. Server-side apply requires apiVersion/
// kind on the request body; controller-runtime's typed client does not
// infer it for Patch the way it does for Get/List.
func ensureGVK(obj client.Object, scheme *runtime.Scheme) error {
	if !obj.GetObjectKind().GroupVersionKind().Empty() {
		return nil
	}
	gvks, _, err := scheme.ObjectKinds(obj)
	if err != nil || len(gvks) == 0 {
		return fmt.Errorf("resolving group version kind for %T: %w", obj, err)
	}
	obj.GetObjectKind().SetGroupVersionKind(gvks[0])
	return nil
}

// serverSideApply force-applies obj with the given field manager, taking
// ownership of every field obj sets. This is the one call site every child
// resource reconcile funnels through in place of a Get-then-Create/Update
// pair, so a concurrent writer (another controller, an admission mutator,
// a human edit of a field we don't set) is merged rather than stomped.
func serverSideApply(ctx context.Context, c client.Client, scheme *runtime.Scheme, obj client.Object, manager string) error {
	if err := ensureGVK(obj, scheme); err != nil {
		return err
	}
	return c.Patch(ctx, obj, client.Apply, client.FieldOwner(manager), client.ForceOwnership)
}

// serverSideApplyStatus force-applies obj's status subresource with the
// given field manager.
func serverSideApplyStatus(ctx context.Context, c client.Client, scheme *runtime.Scheme, obj client.Object, manager string) error {
	if err := ensureGVK(obj, scheme); err != nil {
		return err
	}
	return c.Status().Patch(ctx, obj, client.Apply, client.FieldOwner(manager), client.ForceOwnership)
}
