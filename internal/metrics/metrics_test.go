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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncrementReconcileTotal(t *testing.T) {
	before := testutil.ToFloat64(ReconcileTotal.WithLabelValues("sonarr", "success"))
	IncrementReconcileTotal("sonarr", "success")
	after := testutil.ToFloat64(ReconcileTotal.WithLabelValues("sonarr", "success"))
	if after != before+1 {
		t.Fatalf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestObserveReconcileDuration(t *testing.T) {
	ObserveReconcileDuration("radarr", 1.5)
	count := testutil.CollectAndCount(ReconcileDuration)
	if count == 0 {
		t.Fatal("expected at least one histogram sample")
	}
}

func TestIncrementDriftCorrections(t *testing.T) {
	before := testutil.ToFloat64(DriftCorrectionsTotal.WithLabelValues("sonarr", "media", "Deployment"))
	IncrementDriftCorrections("sonarr", "media", "Deployment")
	after := testutil.ToFloat64(DriftCorrectionsTotal.WithLabelValues("sonarr", "media", "Deployment"))
	if after != before+1 {
		t.Fatalf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestIncrementBackupOperations(t *testing.T) {
	before := testutil.ToFloat64(BackupOperationsTotal.WithLabelValues("sonarr", "backup", "success"))
	IncrementBackupOperations("sonarr", "backup", "success")
	after := testutil.ToFloat64(BackupOperationsTotal.WithLabelValues("sonarr", "backup", "success"))
	if after != before+1 {
		t.Fatalf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestSetManagedAppsOverwrites(t *testing.T) {
	SetManagedApps("sonarr", "media", 3)
	if v := testutil.ToFloat64(ManagedApps.WithLabelValues("sonarr", "media")); v != 3 {
		t.Fatalf("expected gauge to be 3, got %v", v)
	}
	SetManagedApps("sonarr", "media", 7)
	if v := testutil.ToFloat64(ManagedApps.WithLabelValues("sonarr", "media")); v != 7 {
		t.Fatalf("expected gauge to be 7, got %v", v)
	}
}

func TestIncrementStackReconcileTotal(t *testing.T) {
	before := testutil.ToFloat64(StackReconcileTotal.WithLabelValues("success"))
	IncrementStackReconcileTotal("success")
	after := testutil.ToFloat64(StackReconcileTotal.WithLabelValues("success"))
	if after != before+1 {
		t.Fatalf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestSetManagedStacksOverwrites(t *testing.T) {
	SetManagedStacks("media", 2)
	if v := testutil.ToFloat64(ManagedStacks.WithLabelValues("media")); v != 2 {
		t.Fatalf("expected gauge to be 2, got %v", v)
	}
	SetManagedStacks("media", 5)
	if v := testutil.ToFloat64(ManagedStacks.WithLabelValues("media")); v != 5 {
		t.Fatalf("expected gauge to be 5, got %v", v)
	}
}
