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

import "context"

// HealthCheck is the uniform interface every API client implements by
// calling its respective health or status endpoint. The operator uses this
// to report ServarrApp readiness.
type HealthCheck interface {
	// IsHealthy returns (true, nil) if the application is healthy,
	// (false, nil) if it responded but reported an unhealthy state, or a
	// non-nil error on connection failure.
	IsHealthy(ctx context.Context) (bool, error)
}
