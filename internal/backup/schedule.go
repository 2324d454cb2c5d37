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

// Package backup holds the scheduling logic the reconciler uses to decide
// when to trigger a downstream backup API call.
package backup

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Due reports whether a backup on the given standard 5-field cron schedule
// is due at now, given the time of the last successful backup. A nil last
// means a backup has never run, which is always due.
func Due(schedule string, last *time.Time, now time.Time) (bool, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return false, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	if last == nil {
		return true, nil
	}

	return !sched.Next(*last).After(now), nil
}
