// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package stageconfig holds the data-plane stage's runtime configuration:
// a named threshold registry (SetThreshold/Threshold; no other package in
// this module reads it) and the two environment variables the control plane
// uses to identify a running stage.
package stageconfig

import (
	"os"
	"sync"
)

// Environment variable names the control plane reads to identify and
// configure a running stage. Only the names are in scope here; the
// broader env-var discovery protocol the control plane uses to find a
// stage is not implemented by this module.
const (
	EnvStageName = "paio_name"
	EnvStageEnv  = "paio_env"
)

// StageIdentity reads the stage's configured name and environment tag
// from the environment, defaulting both to empty strings if unset.
func StageIdentity() (name, env string) {
	return os.Getenv(EnvStageName), os.Getenv(EnvStageEnv)
}

// thresholds is a process-wide named registry of tunable numeric
// thresholds (commit high/low watermarks, queue capacities expressed as
// floats for uniformity, etc.), mirroring the teacher's pattern of
// snapshotting its worker's configured thresholds for diagnostic output.
var (
	thresholdsMu sync.RWMutex
	thresholds   = map[string]float64{}
)

// SetThreshold records value under name, overwriting any previous value.
func SetThreshold(name string, value float64) {
	thresholdsMu.Lock()
	defer thresholdsMu.Unlock()
	thresholds[name] = value
}

// Threshold returns the value registered under name, and whether it was
// ever set.
func Threshold(name string) (float64, bool) {
	thresholdsMu.RLock()
	defer thresholdsMu.RUnlock()
	v, ok := thresholds[name]
	return v, ok
}

// ThresholdSnapshot returns a copy-safe snapshot of every registered
// threshold, for diagnostic printing or a control-plane stats response.
func ThresholdSnapshot() map[string]float64 {
	thresholdsMu.RLock()
	defer thresholdsMu.RUnlock()
	snapshot := make(map[string]float64, len(thresholds))
	for k, v := range thresholds {
		snapshot[k] = v
	}
	return snapshot
}
