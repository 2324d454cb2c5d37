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

package v1alpha1

// Well-known condition types for ServarrApp and MediaStack status.
// ServiceReady, NetworkPolicyReady, RouteReady and PvcReady are declared
// but not set by either reconciler.
const (
	ConditionReady           = "Ready"
	ConditionValid           = "Valid"
	ConditionDeploymentReady = "DeploymentReady"
	ConditionServiceReady    = "ServiceReady"
	ConditionNetworkPolicyOK = "NetworkPolicyReady"
	ConditionRouteReady      = "RouteReady"
	ConditionPvcReady        = "PvcReady"
	ConditionProgressing     = "Progressing"
	ConditionDegraded        = "Degraded"
	ConditionAppHealthy      = "AppHealthy"
	ConditionUpdateAvailable = "UpdateAvailable"
)
