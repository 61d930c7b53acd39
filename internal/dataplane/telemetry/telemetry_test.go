package telemetry

import "testing"

func TestEnableAndDisabledNoop(t *testing.T) {
	Enable(Config{Enabled: false})
	if Enabled() {
		t.Fatalf("expected telemetry disabled")
	}
	// Must not panic when disabled.
	ObserveRequest("ok")
	ObserveTokenBucketReject()
	SetChannelsActive(3)
}

func TestEnableActivates(t *testing.T) {
	Enable(Config{Enabled: true, SampleRate: 1.0})
	if !Enabled() {
		t.Fatalf("expected telemetry enabled")
	}
	ObserveRequest("ok")
	Enable(Config{Enabled: false})
}

func TestSampledDeterministic(t *testing.T) {
	Enable(Config{Enabled: true, SampleRate: 1.0})
	if !Sampled("any-key") {
		t.Fatalf("expected sample rate 1.0 to sample every key")
	}
	Enable(Config{Enabled: true, SampleRate: 0})
	if Sampled("any-key") {
		t.Fatalf("expected sample rate 0 to sample no key")
	}
	Enable(Config{Enabled: false})
}

func TestLoggerLevelGating(t *testing.T) {
	logger := NewLogger(LevelWarn)
	// Below-threshold calls must not panic even though they are suppressed.
	logger.Debugf("suppressed %d", 1)
	logger.Infof("suppressed %d", 2)
	logger.Warnf("emitted %d", 3)
	logger.Errorf("emitted %d", 4)
}
