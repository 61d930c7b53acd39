package stage

import (
	"testing"
	"time"

	"paioctl/internal/dataplane/core"
	"paioctl/internal/dataplane/differentiation"
	"paioctl/internal/dataplane/enforcement"
)

func buildObject(token uint32, kind int32, properties map[string]float64) (EnforcementObject, error) {
	switch enforcement.ObjectKind(kind) {
	case enforcement.KindNoop:
		return enforcement.NewNoopObject(token), nil
	case enforcement.KindTokenBucketPull:
		capacity := properties["capacity"]
		if capacity <= 0 {
			capacity = 100
		}
		return enforcement.NewTokenBucketPull(token, capacity, time.Second, false), nil
	default:
		return nil, ErrUnknownObjectKind
	}
}

func newTestCore() *Core {
	return NewCore(CoreOptions{
		ContextType:          core.ContextTypeGeneral,
		ChannelTokenFamily:   differentiation.HashX86_32,
		ObjectTokenFamily:    differentiation.HashX86_32,
		DefaultQueueCapacity: 16,
		DefaultWorkerCount:   2,
		BuildObject:          buildObject,
	})
}

func TestChannelCreateObjectRejectsDuplicate(t *testing.T) {
	ch := NewChannel(1, ChannelOptions{ContextType: core.ContextTypeGeneral, FastPathOnly: true})
	defer ch.Close()

	obj := enforcement.NewNoopObject(7)
	if err := ch.CreateObject(obj); err != nil {
		t.Fatalf("unexpected error creating first object: %v", err)
	}
	if err := ch.CreateObject(enforcement.NewNoopObject(7)); err != ErrDuplicateObject {
		t.Fatalf("expected ErrDuplicateObject, got %v", err)
	}
}

func TestCoreEndToEndEnforceRequest(t *testing.T) {
	c := newTestCore()
	channelToken := c.ChannelToken(42)

	ruleID := c.EmployHousekeepingRule(core.HousekeepingRule{
		Operation: core.OpCreateChannel,
		ChannelID: channelToken,
	})
	if ruleID == 0 {
		t.Fatalf("expected non-zero rule id")
	}
	if err := c.ExecuteHousekeepingRules(); err != nil {
		t.Fatalf("unexpected error executing rules: %v", err)
	}

	ch, ok := c.Channel(channelToken)
	if !ok {
		t.Fatalf("expected channel %d to exist after housekeeping", channelToken)
	}
	objectToken := ch.ObjectToken(0, 5, 0)

	if err := c.ExecuteHousekeepingRules(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.EmployHousekeepingRule(core.HousekeepingRule{
		Operation:  core.OpCreateObject,
		ChannelID:  channelToken,
		ObjectID:   objectToken,
		ObjectKind: int32(enforcement.KindNoop),
	})
	if err := c.ExecuteHousekeepingRules(); err != nil {
		t.Fatalf("unexpected error creating object: %v", err)
	}

	result := c.EnforceRequest(core.Context{
		WorkflowID:       42,
		OperationType:    5,
		OperationContext: 0,
		TotalOperations:  1,
		OperationSize:    128,
		CType:            core.ContextTypeGeneral,
	}, time.Second)

	if result.Status != core.StatusOK {
		t.Fatalf("expected StatusOK, got %v", result.Status)
	}

	defer c.Close()
}

func TestCoreEnforceRequestUnknownChannel(t *testing.T) {
	c := newTestCore()
	result := c.EnforceRequest(core.Context{WorkflowID: 999}, time.Second)
	if result.Status != core.StatusNotSupported {
		t.Fatalf("expected StatusNotSupported for unresolved channel, got %v", result.Status)
	}
}

func TestCoreHousekeepingRuleIdempotentReExecution(t *testing.T) {
	c := newTestCore()
	token := c.ChannelToken(1)
	c.EmployHousekeepingRule(core.HousekeepingRule{Operation: core.OpCreateChannel, ChannelID: token})
	if err := c.ExecuteHousekeepingRules(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Re-draining with nothing pending must not error or recreate the channel.
	if err := c.ExecuteHousekeepingRules(); err != nil {
		t.Fatalf("unexpected error on empty re-execution: %v", err)
	}
	if _, ok := c.Channel(token); !ok {
		t.Fatalf("expected channel to still exist")
	}
}

func TestCoreRemoveChannelUnknownErrors(t *testing.T) {
	c := newTestCore()
	c.EmployHousekeepingRule(core.HousekeepingRule{Operation: core.OpRemoveChannel, ChannelID: 12345})
	if err := c.ExecuteHousekeepingRules(); err != ErrNoSuchChannel {
		t.Fatalf("expected ErrNoSuchChannel, got %v", err)
	}
}

// TestChannelSoftBudgetGatesFastPathBeforeObjectEnforce verifies the
// lock-light admission check actually denies requests once its window
// allowance is spent, ahead of an enforcement object that would otherwise
// admit unconditionally.
func TestChannelSoftBudgetGatesFastPathBeforeObjectEnforce(t *testing.T) {
	ch := NewChannel(1, ChannelOptions{
		ContextType:     core.ContextTypeGeneral,
		FastPathOnly:    true,
		SoftBudgetBytes: 100,
	})
	defer ch.Close()

	objectToken := ch.ObjectToken(0, 5, 0)
	if err := ch.CreateObject(enforcement.NewNoopObject(objectToken)); err != nil {
		t.Fatalf("unexpected error creating object: %v", err)
	}

	ctx := core.Context{OperationType: 5, OperationSize: 60}
	first := ch.EnforceRequest(ctx, time.Second)
	if first.Status != core.StatusOK {
		t.Fatalf("expected first request within budget to succeed, got %v", first.Status)
	}

	second := ch.EnforceRequest(ctx, time.Second)
	if second.Status != core.StatusEnforced {
		t.Fatalf("expected second request to overdraw the 100-byte budget and be enforced, got %v", second.Status)
	}

	// A fresh window reopens the budget, admitting traffic again.
	ch.TickStatistics()
	third := ch.EnforceRequest(ctx, time.Second)
	if third.Status != core.StatusOK {
		t.Fatalf("expected the request after TickStatistics reopened the budget to succeed, got %v", third.Status)
	}
}

func TestCoreReadinessAndIdentity(t *testing.T) {
	c := newTestCore()
	if c.StageReady() {
		t.Fatalf("expected stage to start not-ready")
	}
	c.MarkReady()
	if !c.StageReady() {
		t.Fatalf("expected stage to be ready after MarkReady")
	}
	c.SetStageIdentity("paio-stage", "production")
	name, env := c.StageIdentity()
	if name != "paio-stage" || env != "production" {
		t.Fatalf("unexpected identity: %q %q", name, env)
	}
}
