package wire

import "testing"

func TestMarshalUnmarshalControlOperation(t *testing.T) {
	op := ControlOperation{
		OperationID:      7,
		OperationType:    OpCreateHskRule,
		OperationSubtype: SubtypeHskCreateChannel,
		Size:             128,
	}
	data, err := Marshal(op)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var decoded ControlOperation
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if decoded != op {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", decoded, op)
	}
}

func TestStageInfoRawStringFields(t *testing.T) {
	var info StageInfoRaw
	PutString(info.StageName[:], "paio-stage")
	PutString(info.StageHostname[:], "node-7")
	info.PID = 1234

	data, err := Marshal(info)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var decoded StageInfoRaw
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if GetString(decoded.StageName[:]) != "paio-stage" {
		t.Fatalf("expected stage name %q, got %q", "paio-stage", GetString(decoded.StageName[:]))
	}
	if decoded.PID != 1234 {
		t.Fatalf("expected pid 1234, got %d", decoded.PID)
	}
}

func TestStageInfoFieldWidthsMatchProtocol(t *testing.T) {
	var info StageInfoRaw
	if len(info.StageName) != StageNameMaxSize || StageNameMaxSize != 200 {
		t.Fatalf("stage name width must be 200, got %d", len(info.StageName))
	}
	if len(info.StageOpt) != StageOptMaxSize || StageOptMaxSize != 50 {
		t.Fatalf("stage opt width must be 50, got %d", len(info.StageOpt))
	}
	if len(info.StageHostname) != HostNameMax || HostNameMax != 64 {
		t.Fatalf("hostname width must be 64, got %d", len(info.StageHostname))
	}
}

func TestPropertiesRoundtrip(t *testing.T) {
	props := map[string]float64{"capacity": 1000, "refill_period_ms": 500}
	data, err := MarshalProperties(props)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	decoded, err := UnmarshalProperties(data)
	if err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(decoded) != len(props) {
		t.Fatalf("expected %d properties, got %d", len(props), len(decoded))
	}
	for k, v := range props {
		if decoded[k] != v {
			t.Fatalf("property %q: expected %v, got %v", k, v, decoded[k])
		}
	}
}

func TestPropertiesEmptyMap(t *testing.T) {
	data, err := MarshalProperties(map[string]float64{})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	decoded, err := UnmarshalProperties(data)
	if err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(decoded))
	}
}
