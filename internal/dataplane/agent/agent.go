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

// Package agent is the control-plane-facing half of the stage: it accepts
// housekeeping and enforcement rules (from the control plane, a rule file,
// or a direct caller), batches them into the underlying stage.Core, tracks
// readiness, and optionally audits every applied rule.
package agent

import (
	"context"
	"fmt"
	"os"

	"paioctl/internal/dataplane/audit"
	"paioctl/internal/dataplane/core"
	"paioctl/internal/dataplane/stage"
)

const (
	// EnvStageName and EnvStageEnv name the environment variables the
	// original stage reads its handshake identity from.
	EnvStageName = "paio_name"
	EnvStageEnv  = "paio_env"
)

// Agent wraps a stage.Core with the control-plane-facing operations: rule
// admission, readiness signaling, and (optionally) an audit trail of every
// rule applied. An Agent with no audit sink attached pays nothing extra per
// rule.
type Agent struct {
	core  *stage.Core
	audit *audit.RuleAuditSink
}

// New builds an Agent around core, reading the stage's name/environment
// identity from the process environment exactly as the original stage's
// handshake does. auditSink may be nil to disable auditing entirely.
func New(c *stage.Core, auditSink *audit.RuleAuditSink) *Agent {
	name := os.Getenv(EnvStageName)
	if name == "" {
		name = "paio-stage"
	}
	env := os.Getenv(EnvStageEnv)
	if env == "" {
		env = "development"
	}
	c.SetStageIdentity(name, env)
	return &Agent{core: c, audit: auditSink}
}

// Core exposes the underlying stage.Core for operations the Agent does not
// wrap directly (statistics collection, direct EnforceRequest calls).
func (a *Agent) Core() *stage.Core { return a.core }

// EmployHousekeepingRule queues rule for the next ExecuteHousekeepingRules
// call and returns its assigned RuleID.
func (a *Agent) EmployHousekeepingRule(rule core.HousekeepingRule) uint64 {
	return a.core.EmployHousekeepingRule(rule)
}

// ExecuteHousekeepingRules drains and applies every pending housekeeping
// rule and, if an audit sink is attached, records one audit entry for the
// whole batch under the key "housekeeping:batch" (status 1 if any rule
// failed, 0 otherwise); individual rules are not audited separately.
func (a *Agent) ExecuteHousekeepingRules(ctx context.Context) error {
	err := a.core.ExecuteHousekeepingRules()
	if a.audit != nil {
		status := int64(0)
		if err != nil {
			status = 1
		}
		ruleKey := "housekeeping:batch"
		if auditErr := a.audit.RecordRuleApplication(ctx, ruleKey, status); auditErr != nil {
			if err == nil {
				return fmt.Errorf("agent: housekeeping rules applied but audit failed: %w", auditErr)
			}
		}
	}
	return err
}

// EmployEnforcementRule applies rule immediately against the named channel
// and object, auditing the outcome if an audit sink is attached.
func (a *Agent) EmployEnforcementRule(ctx context.Context, rule core.EnforcementRule) error {
	err := a.core.EmployEnforcementRule(rule)
	if a.audit != nil {
		status := int64(0)
		if err != nil {
			status = 1
		}
		ruleKey := fmt.Sprintf("channel:%d:object:%d", rule.ChannelID, rule.ObjectID)
		if auditErr := a.audit.RecordRuleApplication(ctx, ruleKey, status); auditErr != nil {
			if err == nil {
				return fmt.Errorf("agent: enforcement rule applied but audit failed: %w", auditErr)
			}
		}
	}
	return err
}

// MarkDataPlaneStageReady flips the stage's readiness flag, reported to the
// control-plane handshake as "mark_stage_ready".
func (a *Agent) MarkDataPlaneStageReady() { a.core.MarkReady() }

// StageReady reports whether MarkDataPlaneStageReady has been called.
func (a *Agent) StageReady() bool { return a.core.StageReady() }

// StageInfo returns the stage's handshake identity.
func (a *Agent) StageInfo() (name, env string) { return a.core.StageIdentity() }

// LoadRuleFile parses path (auto-detecting the line-oriented or YAML
// format by extension) and employs every rule it contains. It does not
// execute housekeeping rules itself; callers decide when to flush via
// ExecuteHousekeepingRules so multiple files can be loaded before the
// first structural change takes effect.
func (a *Agent) LoadRuleFile(path string) error {
	rules, err := ParseRuleFile(path)
	if err != nil {
		return fmt.Errorf("agent: loading rule file %s: %w", path, err)
	}
	for _, hr := range rules.Housekeeping {
		a.EmployHousekeepingRule(hr)
	}
	for _, er := range rules.Enforcement {
		if err := a.core.EmployEnforcementRule(er); err != nil {
			return fmt.Errorf("agent: applying enforcement rule from %s: %w", path, err)
		}
	}
	return nil
}
