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

// Package paioctl is the public facade over the data-plane stage: a
// single Stage type wrapping the internal Core/Agent machinery behind
// the operations an embedding application or control plane actually
// calls.
package paioctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"time"

	"paioctl/internal/dataplane/agent"
	"paioctl/internal/dataplane/audit"
	"paioctl/internal/dataplane/core"
	"paioctl/internal/dataplane/differentiation"
	"paioctl/internal/dataplane/enforcement"
	"paioctl/internal/dataplane/stage"
	"paioctl/internal/dataplane/stats"
	"paioctl/internal/dataplane/wire"
)

// ErrNoSuchChannel and ErrNoSuchObject surface a statistics request for a
// token that is not currently registered.
var (
	ErrNoSuchChannel = errors.New("paioctl: no such channel")
	ErrNoSuchObject  = errors.New("paioctl: no such enforcement object")
)

// StageOptions configures a new Stage. Zero values select the same
// defaults stage.NewCore and agent.New apply.
type StageOptions struct {
	ContextType          core.ContextType
	ChannelTokenFamily   differentiation.HashFamily
	ObjectTokenFamily    differentiation.HashFamily
	QueueCapacity        int
	WorkerCount          int
	FastPathOnly         bool

	// SoftBudgetBytes, if positive, attaches a lock-light per-window byte
	// budget to every channel (see stage.ChannelOptions.SoftBudgetBytes),
	// checked by EnforceRequest's fast path ahead of the per-object
	// enforcement call. Zero disables it.
	SoftBudgetBytes int64

	// AuditAdapter selects the audit.BuildSink backend ("", "mock",
	// "redis", "kafka", "file"). Postgres is not selectable here since
	// it requires a live *sql.DB; embed paioctl and wire an agent.Agent
	// manually with audit.NewPostgresSink for that case.
	AuditAdapter       string
	AuditClientOptions audit.ClientOptions
}

// Stage is the embeddable, public entry point into the data-plane
// enforcement engine.
type Stage struct {
	core  *stage.Core
	agent *agent.Agent
}

// NewStage builds a Stage ready to accept housekeeping rules. No channels
// exist until EmployHousekeepingRule/ExecuteHousekeepingRules create them.
func NewStage(opts StageOptions) (*Stage, error) {
	c := stage.NewCore(stage.CoreOptions{
		ContextType:          opts.ContextType,
		ChannelTokenFamily:   opts.ChannelTokenFamily,
		ObjectTokenFamily:    opts.ObjectTokenFamily,
		DefaultQueueCapacity:   opts.QueueCapacity,
		DefaultWorkerCount:     opts.WorkerCount,
		DefaultFastPathOnly:    opts.FastPathOnly,
		DefaultSoftBudgetBytes: opts.SoftBudgetBytes,
		BuildObject:            buildEnforcementObject,
	})

	sink, err := audit.BuildSink(opts.AuditAdapter, opts.AuditClientOptions)
	if err != nil {
		return nil, fmt.Errorf("paioctl: building audit sink: %w", err)
	}

	a := agent.New(c, audit.NewRuleAuditSink(sink))
	return &Stage{core: c, agent: a}, nil
}

// buildEnforcementObject is the stage.ObjectFactory every Stage wires in:
// it understands every enforcement.ObjectKind this repository ships.
// Property "push" (any non-zero value) selects the background-refill
// token bucket variant over the default pull (lazy-refill) variant.
func buildEnforcementObject(token uint32, kind int32, props map[string]float64) (stage.EnforcementObject, error) {
	collectStats := true
	switch enforcement.ObjectKind(kind) {
	case enforcement.KindNoop:
		return enforcement.NewNoopObject(token), nil
	case enforcement.KindTokenBucketPull:
		refill := time.Duration(props["refill_period_ms"]) * time.Millisecond
		if props["push"] != 0 {
			return enforcement.NewTokenBucketPush(token, props["capacity"], refill, collectStats), nil
		}
		return enforcement.NewTokenBucketPull(token, props["capacity"], refill, collectStats), nil
	default:
		return nil, fmt.Errorf("paioctl: unrecognized enforcement object kind %d", kind)
	}
}

// EnforceRequest is the data-plane hot path: it routes ctx through its
// resolved channel and object and returns the enforcement outcome.
func (s *Stage) EnforceRequest(ctx core.Context, timeout time.Duration) core.Result {
	return s.core.EnforceRequest(ctx, timeout)
}

// MarkDataPlaneStageReady flips the stage's readiness flag.
func (s *Stage) MarkDataPlaneStageReady() { s.agent.MarkDataPlaneStageReady() }

// StageReady reports whether MarkDataPlaneStageReady has been called.
func (s *Stage) StageReady() bool { return s.agent.StageReady() }

// StageInfo builds the bit-exact handshake payload this stage would send
// a control plane: name/env, process identity, host, and login.
func (s *Stage) StageInfo() wire.StageInfoRaw {
	name, env := s.agent.StageInfo()

	var info wire.StageInfoRaw
	wire.PutString(info.StageName[:], name)
	wire.PutString(info.StageOpt[:], env)
	info.PID = int32(os.Getpid())
	info.PPID = int32(os.Getppid())

	if host, err := os.Hostname(); err == nil {
		wire.PutString(info.StageHostname[:], host)
	}
	if u, err := user.Current(); err == nil {
		wire.PutString(info.StageLogin[:], u.Username)
	}
	return info
}

// StageInfoString renders StageInfo as a human-readable diagnostic line.
func (s *Stage) StageInfoString() string {
	info := s.StageInfo()
	return fmt.Sprintf(
		"name=%s opt=%s pid=%d ppid=%d host=%s login=%s",
		wire.GetString(info.StageName[:]),
		wire.GetString(info.StageOpt[:]),
		info.PID, info.PPID,
		wire.GetString(info.StageHostname[:]),
		wire.GetString(info.StageLogin[:]),
	)
}

// EmployHousekeepingRule queues rule for the next ExecuteHousekeepingRules
// call and returns its assigned RuleID.
func (s *Stage) EmployHousekeepingRule(rule core.HousekeepingRule) uint64 {
	return s.agent.EmployHousekeepingRule(rule)
}

// ExecuteHousekeepingRules drains and applies every pending housekeeping
// rule against the live channel/object topology.
func (s *Stage) ExecuteHousekeepingRules(ctx context.Context) error {
	return s.agent.ExecuteHousekeepingRules(ctx)
}

// EmployEnforcementRule applies an immediate reconfiguration to an
// existing enforcement object.
func (s *Stage) EmployEnforcementRule(ctx context.Context, rule core.EnforcementRule) error {
	return s.agent.EmployEnforcementRule(ctx, rule)
}

// LoadRuleFile parses and employs (and, for enforcement rules, applies)
// every rule in the rule file at path.
func (s *Stage) LoadRuleFile(path string) error {
	return s.agent.LoadRuleFile(path)
}

// CollectChannelStatistics returns the windowed statistics snapshot for
// channelID.
func (s *Stage) CollectChannelStatistics(channelID uint32) (stats.Snapshot, error) {
	ch, ok := s.core.Channel(channelID)
	if !ok {
		return stats.Snapshot{}, ErrNoSuchChannel
	}
	return ch.Statistics(), nil
}

// CollectDetailedChannelStatistics returns every enforcement object's
// statistics snapshot within channelID, keyed by object token.
func (s *Stage) CollectDetailedChannelStatistics(channelID uint32) (map[uint32]enforcement.ObjectStats, error) {
	ch, ok := s.core.Channel(channelID)
	if !ok {
		return nil, ErrNoSuchChannel
	}
	result := make(map[uint32]enforcement.ObjectStats)
	ch.ForEachObject(func(token uint32, obj stage.EnforcementObject) {
		if collector, ok := obj.(enforcement.Object); ok {
			result[token] = collector.CollectStats()
		}
	})
	return result, nil
}

// CollectEnforcementObjectStatistics returns a single enforcement
// object's statistics snapshot.
func (s *Stage) CollectEnforcementObjectStatistics(channelID, objectID uint32) (enforcement.ObjectStats, error) {
	ch, ok := s.core.Channel(channelID)
	if !ok {
		return enforcement.ObjectStats{}, ErrNoSuchChannel
	}
	obj, ok := ch.Object(objectID)
	if !ok {
		return enforcement.ObjectStats{}, ErrNoSuchObject
	}
	collector, ok := obj.(enforcement.Object)
	if !ok {
		return enforcement.ObjectStats{}, ErrNoSuchObject
	}
	return collector.CollectStats(), nil
}

// Core exposes the underlying stage.Core for callers (adminhttp) that
// need lower-level access than this facade provides.
func (s *Stage) Core() *stage.Core { return s.core }

// Agent exposes the underlying agent.Agent.
func (s *Stage) Agent() *agent.Agent { return s.agent }

// Close tears down every channel's worker pool.
func (s *Stage) Close() { s.core.Close() }
