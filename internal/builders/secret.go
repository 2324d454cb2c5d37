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
)

// AuthorizedKeysSecret builds the per-user authorized-keys Secret for SSH
// bastion apps. Returns nil when app isn't an SSH bastion, has no users, or
// none of its users carry public keys.
func AuthorizedKeysSecret(app *servarrv1alpha1.ServarrApp) *corev1.Secret {
	sc := sshBastionConfig(app)
	if sc == nil || len(sc.Users) == 0 {
		return nil
	}

	data := make(map[string]string)
	for _, user := range sc.Users {
		if user.PublicKeys != "" {
			data[user.Name] = user.PublicKeys
		}
	}
	if len(data) == 0 {
		return nil
	}

	return &corev1.Secret{
		ObjectMeta: ObjectMeta(app, "authorized-keys"),
		StringData: data,
		Type:       corev1.SecretTypeOpaque,
	}
}
