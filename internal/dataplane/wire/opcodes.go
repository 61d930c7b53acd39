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

// Package wire defines the bit-exact structs exchanged between the
// control plane and this data-plane stage, and the opcodes that tag them.
// Only the struct layouts and a byte-level codec live here; the socket
// listener/dialer that would carry these bytes over the wire is out of
// scope for this module.
package wire

// OperationType is the control-plane operation opcode, matching the
// original protocol's stage_handshake..remove_rule ordering exactly so
// any capture of the real wire format remains decodable against these
// constants.
type OperationType int32

const (
	OpStageHandshake     OperationType = 0
	OpMarkStageReady      OperationType = 1
	OpCollectStats        OperationType = 2
	OpCollectDetailedStats OperationType = 3
	OpCreateHskRule        OperationType = 4
	OpCreateDifRule        OperationType = 5
	OpCreateEnfRule        OperationType = 6
	OpExecHskRules         OperationType = 7
	OpRemoveRule           OperationType = 8
)

// OperationSubtype is the secondary opcode attached to a subset of
// operations (currently only housekeeping rule creation and statistics
// collection need one).
type OperationSubtype int32

const (
	SubtypeNoOp                   OperationSubtype = 0
	SubtypeHskCreateChannel        OperationSubtype = 1
	SubtypeHskCreateObject         OperationSubtype = 2
	SubtypeCollectStatsGlobal      OperationSubtype = 5
	SubtypeCollectStatsMetadata    OperationSubtype = 6
	SubtypeCollectStatsMDS         OperationSubtype = 7
)

// AckCode mirrors the protocol's two-valued acknowledgement code.
type AckCode int32

const (
	AckError AckCode = 0
	AckOK    AckCode = 1
)
