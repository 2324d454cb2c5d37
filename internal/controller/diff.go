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

import "fmt"

// jsonIsSubset reports whether every field in desired exists with the same
// value in actual. Extra fields in actual (e.g. Kubernetes-assigned
// defaults) are ignored, since Kubernetes fills in fields the operator
// never set.
func jsonIsSubset(desired, actual any) bool {
	switch d := desired.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, dv := range d {
			av, ok := a[k]
			if !ok || !jsonIsSubset(dv, av) {
				return false
			}
		}
		return true
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(d) {
			return false
		}
		for i, dv := range d {
			if !jsonIsSubset(dv, a[i]) {
				return false
			}
		}
		return true
	default:
		return desired == actual
	}
}

// jsonDiffPaths returns dotted/bracketed paths where desired differs from
// actual, for debug-level drift logging.
func jsonDiffPaths(desired, actual any, path string) []string {
	switch d := desired.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("%s: not an object in actual", path)}
		}
		var out []string
		for k, dv := range d {
			p := k
			if path != "" {
				p = path + "." + k
			}
			av, ok := a[k]
			if !ok {
				out = append(out, fmt.Sprintf("%s: missing in actual", p))
				continue
			}
			out = append(out, jsonDiffPaths(dv, av, p)...)
		}
		return out
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(d) {
			actualLen := -1
			if ok {
				actualLen = len(a)
			}
			return []string{fmt.Sprintf("%s: array length %d vs %d", path, len(d), actualLen)}
		}
		var out []string
		for i, dv := range d {
			out = append(out, jsonDiffPaths(dv, a[i], fmt.Sprintf("%s[%d]", path, i))...)
		}
		return out
	default:
		if desired == actual {
			return nil
		}
		return []string{fmt.Sprintf("%s: %v vs %v", path, desired, actual)}
	}
}
