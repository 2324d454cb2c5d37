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

// Package crd embeds the ServarrApp and MediaStack CustomResourceDefinition
// manifests so the "crd" CLI subcommand can print them without a
// cluster connection, mirroring the original's in-process CRD derivation.
package crd

import "embed"

//go:embed bases/*.yaml
var manifests embed.FS

// Manifests returns the embedded CRD YAML files, sorted by name.
func Manifests() (names []string, read func(name string) ([]byte, error), err error) {
	entries, err := manifests.ReadDir("bases")
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, func(name string) ([]byte, error) {
		return manifests.ReadFile("bases/" + name)
	}, nil
}
