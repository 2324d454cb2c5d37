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

package apiclient

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// SecretKeyError describes why a Secret key lookup failed.
type SecretKeyError struct {
	Name string
	Key  string
	Kind string // "no-data" | "key-not-found"
}

func (e *SecretKeyError) Error() string {
	switch e.Kind {
	case "no-data":
		return fmt.Sprintf("secret %s has no data", e.Name)
	default:
		return fmt.Sprintf("key %s not found in secret %s", e.Key, e.Name)
	}
}

// ReadSecretKey reads a single key's value from a Kubernetes Secret.
//
// client-go (via controller-runtime's client.Client) decodes the
// base64-encoded Secret data automatically, so the returned value is the
// plain UTF-8 string.
func ReadSecretKey(ctx context.Context, c client.Client, namespace, secretName, key string) (string, error) {
	var secret corev1.Secret
	if err := c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: secretName}, &secret); err != nil {
		return "", fmt.Errorf("getting secret %s/%s: %w", namespace, secretName, err)
	}

	if len(secret.Data) == 0 {
		return "", &SecretKeyError{Name: secretName, Kind: "no-data"}
	}

	value, ok := secret.Data[key]
	if !ok {
		return "", &SecretKeyError{Name: secretName, Key: key, Kind: "key-not-found"}
	}

	return string(value), nil
}
