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
	"testing"

	. "github.com/onsi/gomega"
)

func jsonObj(m map[string]any) any { return m }

func TestJSONIsSubsetBothEmptyObjects(t *testing.T) {
	g := NewWithT(t)
	g.Expect(jsonIsSubset(jsonObj(map[string]any{}), jsonObj(map[string]any{}))).To(BeTrue())
}

func TestJSONIsSubsetExtraKeysInActual(t *testing.T) {
	g := NewWithT(t)
	desired := jsonObj(map[string]any{"a": 1.0})
	actual := jsonObj(map[string]any{"a": 1.0, "b": 2.0})
	g.Expect(jsonIsSubset(desired, actual)).To(BeTrue())
}

func TestJSONIsSubsetValueMismatch(t *testing.T) {
	g := NewWithT(t)
	g.Expect(jsonIsSubset(jsonObj(map[string]any{"a": 1.0}), jsonObj(map[string]any{"a": 2.0}))).To(BeFalse())
}

func TestJSONIsSubsetMissingKeyInActual(t *testing.T) {
	g := NewWithT(t)
	g.Expect(jsonIsSubset(jsonObj(map[string]any{"a": 1.0}), jsonObj(map[string]any{}))).To(BeFalse())
}

func TestJSONIsSubsetNestedObjectsExtraKeys(t *testing.T) {
	g := NewWithT(t)
	desired := jsonObj(map[string]any{"a": map[string]any{"b": 1.0}})
	actual := jsonObj(map[string]any{"a": map[string]any{"b": 1.0, "c": 2.0}})
	g.Expect(jsonIsSubset(desired, actual)).To(BeTrue())
}

func TestJSONIsSubsetArraysSame(t *testing.T) {
	g := NewWithT(t)
	g.Expect(jsonIsSubset([]any{1.0, 2.0, 3.0}, []any{1.0, 2.0, 3.0})).To(BeTrue())
}

func TestJSONIsSubsetArraysDifferentLengths(t *testing.T) {
	g := NewWithT(t)
	g.Expect(jsonIsSubset([]any{1.0, 2.0}, []any{1.0, 2.0, 3.0})).To(BeFalse())
}

func TestJSONIsSubsetArraysDifferentValues(t *testing.T) {
	g := NewWithT(t)
	g.Expect(jsonIsSubset([]any{1.0, 2.0, 3.0}, []any{1.0, 2.0, 4.0})).To(BeFalse())
}

func TestJSONIsSubsetNullVsNull(t *testing.T) {
	g := NewWithT(t)
	g.Expect(jsonIsSubset(nil, nil)).To(BeTrue())
}

func TestJSONIsSubsetScalarMismatchTypes(t *testing.T) {
	g := NewWithT(t)
	g.Expect(jsonIsSubset(1.0, "1")).To(BeFalse())
}

func TestJSONDiffPathsBothEmpty(t *testing.T) {
	g := NewWithT(t)
	g.Expect(jsonDiffPaths(jsonObj(map[string]any{}), jsonObj(map[string]any{}), "")).To(BeEmpty())
}

func TestJSONDiffPathsMissingKey(t *testing.T) {
	g := NewWithT(t)
	diff := jsonDiffPaths(jsonObj(map[string]any{"key": 1.0}), jsonObj(map[string]any{}), "")
	g.Expect(diff).To(ContainElement("key: missing in actual"))
}

func TestJSONDiffPathsValueMismatch(t *testing.T) {
	g := NewWithT(t)
	diff := jsonDiffPaths(jsonObj(map[string]any{"key": 1.0}), jsonObj(map[string]any{"key": 2.0}), "")
	g.Expect(diff).To(ContainElement("key: 1 vs 2"))
}

func TestJSONDiffPathsArrayLengthMismatch(t *testing.T) {
	g := NewWithT(t)
	desired := jsonObj(map[string]any{"a": []any{1.0, 2.0}})
	actual := jsonObj(map[string]any{"a": []any{1.0}})
	diff := jsonDiffPaths(desired, actual, "")
	g.Expect(diff).To(ContainElement("a: array length 2 vs 1"))
}

func TestJSONDiffPathsArrayElementMismatch(t *testing.T) {
	g := NewWithT(t)
	desired := jsonObj(map[string]any{"a": []any{1.0, 2.0}})
	actual := jsonObj(map[string]any{"a": []any{1.0, 3.0}})
	diff := jsonDiffPaths(desired, actual, "")
	g.Expect(diff).To(ContainElement("a[1]: 2 vs 3"))
}
