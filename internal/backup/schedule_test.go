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

package backup

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestDueWithNoPriorBackupIsAlwaysDue(t *testing.T) {
	g := NewWithT(t)
	due, err := Due("0 3 * * *", nil, time.Now())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(due).To(BeTrue())
}

func TestDueWithRecentBackupIsNotDue(t *testing.T) {
	g := NewWithT(t)
	now := time.Date(2026, 7, 29, 3, 0, 1, 0, time.UTC)
	last := time.Date(2026, 7, 29, 3, 0, 0, 0, time.UTC)
	due, err := Due("0 3 * * *", &last, now)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(due).To(BeFalse())
}

func TestDueWithElapsedScheduleIsDue(t *testing.T) {
	g := NewWithT(t)
	last := time.Date(2026, 7, 28, 3, 0, 0, 0, time.UTC)
	now := time.Date(2026, 7, 29, 4, 0, 0, 0, time.UTC)
	due, err := Due("0 3 * * *", &last, now)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(due).To(BeTrue())
}

func TestDueWithInvalidScheduleReturnsError(t *testing.T) {
	g := NewWithT(t)
	_, err := Due("not a cron schedule", nil, time.Now())
	g.Expect(err).To(HaveOccurred())
}
