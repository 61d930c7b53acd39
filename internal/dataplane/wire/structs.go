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

package wire

// Field widths match the control-plane wire protocol's fixed-size char
// buffers exactly, so a captured byte stream from the original protocol
// decodes against these constants without adjustment.
const (
	StageNameMaxSize = 200
	StageOptMaxSize  = 50
	HostNameMax      = 64
	LoginNameMax     = 64

	StageMaxHandshakeAddressSize = 100
	ObjectStatisticsEntriesSize  = 100
)

// ControlOperation is the fixed-size envelope every control-plane message
// opens with: an id, the primary opcode, an optional subtype, and the
// byte size of whatever payload follows it.
type ControlOperation struct {
	OperationID      int32
	OperationType    OperationType
	OperationSubtype OperationSubtype
	Size             int32
}

// ControlResponse carries a single integer response code back to the
// control plane.
type ControlResponse struct {
	Response int32
}

// ACK is the accept/reject acknowledgement for a fire-and-forget command.
type ACK struct {
	Message AckCode
}

// StageInfoRaw identifies this running stage to the control plane during
// the handshake: its configured name/opt, process identity, and host.
type StageInfoRaw struct {
	StageName     [StageNameMaxSize]byte
	StageOpt      [StageOptMaxSize]byte
	PID           int32
	PPID          int32
	StageHostname [HostNameMax]byte
	StageLogin    [LoginNameMax]byte
}

// StageHandshakeRaw is returned by the stage in response to
// OpStageHandshake, giving the control plane an address to reconnect to
// for the rest of the session.
type StageHandshakeRaw struct {
	Address [StageMaxHandshakeAddressSize]byte
	Port    int32
}

// StageReadyRaw acknowledges OpMarkStageReady.
type StageReadyRaw struct {
	Ready AckCode
}

// HousekeepingCreateChannelRaw is the payload for a create-channel
// housekeeping rule.
type HousekeepingCreateChannelRaw struct {
	RuleID    uint64
	ChannelID uint32
}

// HousekeepingCreateObjectRaw is the payload for a create-object
// housekeeping rule.
type HousekeepingCreateObjectRaw struct {
	RuleID     uint64
	ChannelID  uint32
	ObjectID   uint32
	ObjectKind int32
}

// EnforcementRuleRaw is the payload for a runtime object reconfiguration.
// It carries no properties itself, since the wire format has no native
// map type; a rule's property map is encoded separately with
// MarshalProperties/UnmarshalProperties (wire/codec.go) and appended
// after this struct.
type EnforcementRuleRaw struct {
	RuleID    uint64
	ChannelID uint32
	ObjectID  uint32
}

// ChannelStatsRaw is the fixed-size summary returned by
// OpCollectStats for a single channel.
type ChannelStatsRaw struct {
	ChannelID    uint32
	OpsOverall   uint64
	BytesOverall uint64
}

// TBStatsRaw is a token bucket's statistics snapshot in wire form.
type TBStatsRaw struct {
	ConsumedTotal    uint64
	RejectedTotal    uint64
	ConsumedInWindow uint64
	RejectedInWindow uint64
}

// ObjectStatisticsRaw is the fixed-capacity array of per-object detailed
// statistics returned by OpCollectDetailedStats.
type ObjectStatisticsRaw struct {
	Count   int32
	Entries [ObjectStatisticsEntriesSize]TBStatsRaw
}
