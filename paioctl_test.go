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

package paioctl

import (
	"context"
	"testing"
	"time"

	"paioctl/internal/dataplane/core"
	"paioctl/internal/dataplane/differentiation"
	"paioctl/internal/dataplane/enforcement"
)

func newTestStage(t *testing.T) *Stage {
	t.Helper()
	s, err := NewStage(StageOptions{
		ContextType:        core.ContextTypeGeneral,
		ChannelTokenFamily: differentiation.HashX86_32,
		ObjectTokenFamily:  differentiation.HashX86_32,
		QueueCapacity:      16,
		WorkerCount:        1,
		FastPathOnly:       true,
		AuditAdapter:       "mock",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

// createChannelAndObject creates a channel for workflowID and a
// token-bucket object selected by (opType, opCtx), keying both under the
// same differentiation tokens EnforceRequest will resolve at request
// time. Returns those tokens for the caller's own direct lookups.
func createChannelAndObject(t *testing.T, s *Stage, workflowID, opType, opCtx uint32) (channelToken, objectToken uint32) {
	t.Helper()
	channelToken = s.core.ChannelToken(workflowID)
	s.EmployHousekeepingRule(core.HousekeepingRule{Operation: core.OpCreateChannel, ChannelID: channelToken})
	if err := s.ExecuteHousekeepingRules(context.Background()); err != nil {
		t.Fatalf("unexpected error creating channel: %v", err)
	}

	ch, ok := s.core.Channel(channelToken)
	if !ok {
		t.Fatalf("expected channel to exist after housekeeping")
	}
	objectToken = ch.ObjectToken(workflowID, opType, opCtx)

	s.EmployHousekeepingRule(core.HousekeepingRule{
		Operation:  core.OpCreateObject,
		ChannelID:  channelToken,
		ObjectID:   objectToken,
		ObjectKind: int32(enforcement.KindTokenBucketPull),
		Properties: map[string]float64{"capacity": 5, "refill_period_ms": 1000},
	})
	if err := s.ExecuteHousekeepingRules(context.Background()); err != nil {
		t.Fatalf("unexpected error creating object: %v", err)
	}
	return channelToken, objectToken
}

func TestStageEnforceRequestEndToEnd(t *testing.T) {
	s := newTestStage(t)
	createChannelAndObject(t, s, 1, 0, 0)

	ctx := core.Context{WorkflowID: 1, OperationType: 0, OperationContext: 0, OperationSize: 1}
	result := s.EnforceRequest(ctx, time.Second)
	if result.Status != core.StatusOK {
		t.Fatalf("expected StatusOK on first request, got %v", result.Status)
	}
}

func TestStageEnforceRequestUnresolvedChannel(t *testing.T) {
	s := newTestStage(t)
	ctx := core.Context{WorkflowID: 999}
	result := s.EnforceRequest(ctx, time.Second)
	if result.Status != core.StatusNotSupported {
		t.Fatalf("expected StatusNotSupported, got %v", result.Status)
	}
}

func TestStageReadinessRoundtrip(t *testing.T) {
	s := newTestStage(t)
	if s.StageReady() {
		t.Fatalf("expected not ready initially")
	}
	s.MarkDataPlaneStageReady()
	if !s.StageReady() {
		t.Fatalf("expected ready after MarkDataPlaneStageReady")
	}
}

func TestStageInfoFieldsPopulated(t *testing.T) {
	s := newTestStage(t)
	info := s.StageInfo()
	if info.PID == 0 {
		t.Fatalf("expected non-zero PID")
	}
	str := s.StageInfoString()
	if str == "" {
		t.Fatalf("expected non-empty StageInfoString")
	}
}

func TestStageCollectChannelStatistics(t *testing.T) {
	s := newTestStage(t)
	channelToken, _ := createChannelAndObject(t, s, 2, 0, 0)
	ctx := core.Context{WorkflowID: 2, OperationSize: 10}
	s.EnforceRequest(ctx, time.Second)

	snap, err := s.CollectChannelStatistics(channelToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.ContextType != core.ContextTypeGeneral {
		t.Fatalf("unexpected context type: %v", snap.ContextType)
	}
}

func TestStageCollectChannelStatisticsNoSuchChannel(t *testing.T) {
	s := newTestStage(t)
	if _, err := s.CollectChannelStatistics(12345); err != ErrNoSuchChannel {
		t.Fatalf("expected ErrNoSuchChannel, got %v", err)
	}
}

func TestStageCollectDetailedAndObjectStatistics(t *testing.T) {
	s := newTestStage(t)
	channelToken, objectToken := createChannelAndObject(t, s, 3, 0, 0)

	detailed, err := s.CollectDetailedChannelStatistics(channelToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detailed) != 1 {
		t.Fatalf("expected 1 object's stats, got %d", len(detailed))
	}

	stat, err := s.CollectEnforcementObjectStatistics(channelToken, objectToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stat.Kind != enforcement.KindTokenBucketPull {
		t.Fatalf("expected KindTokenBucketPull, got %v", stat.Kind)
	}
}

func TestStageCollectEnforcementObjectStatisticsNoSuchObject(t *testing.T) {
	s := newTestStage(t)
	channelToken, _ := createChannelAndObject(t, s, 4, 0, 0)
	if _, err := s.CollectEnforcementObjectStatistics(channelToken, 999999); err != ErrNoSuchObject {
		t.Fatalf("expected ErrNoSuchObject, got %v", err)
	}
}
