package stageconfig

import "testing"

func TestStageIdentityFromEnv(t *testing.T) {
	t.Setenv(EnvStageName, "paio-stage-1")
	t.Setenv(EnvStageEnv, "staging")

	name, env := StageIdentity()
	if name != "paio-stage-1" || env != "staging" {
		t.Fatalf("unexpected identity: %q %q", name, env)
	}
}

func TestThresholdRegistry(t *testing.T) {
	SetThreshold("commit_high_watermark", 1000)
	SetThreshold("commit_low_watermark", 100)

	v, ok := Threshold("commit_high_watermark")
	if !ok || v != 1000 {
		t.Fatalf("expected 1000, got %v ok=%v", v, ok)
	}

	snap := ThresholdSnapshot()
	if snap["commit_low_watermark"] != 100 {
		t.Fatalf("expected snapshot to carry commit_low_watermark=100, got %v", snap)
	}
}

func TestThresholdMissing(t *testing.T) {
	_, ok := Threshold("never_set_xyz")
	if ok {
		t.Fatalf("expected missing threshold to report ok=false")
	}
}
