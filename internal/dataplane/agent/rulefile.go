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

package agent

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"paioctl/internal/dataplane/core"
	"paioctl/internal/dataplane/enforcement"
)

// ParsedRules is the result of loading a rule file: housekeeping rules in
// file order, followed by the enforcement rules in file order.
type ParsedRules struct {
	Housekeeping []core.HousekeepingRule
	Enforcement  []core.EnforcementRule
}

// ParseRuleFile reads path and parses it as either the line-oriented
// format (any extension other than ".yaml"/".yml") or the YAML format,
// chosen by file extension.
func ParseRuleFile(path string) (ParsedRules, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAMLRuleFile(path)
	default:
		return parseLineRuleFile(path)
	}
}

// contextTypeTokens is the fixed dictionary mapping a rule file's
// context-type word to the core.ContextType it selects.
var contextTypeTokens = map[string]core.ContextType{
	"posix":      core.ContextTypePosix,
	"posix_meta": core.ContextTypePosixMeta,
	"kvs":        core.ContextTypeKVS,
	"general":    core.ContextTypeGeneral,
	"noop":       core.ContextTypeNoOp,
}

// opTokens is the fixed dictionary mapping a rule file's op-type/op-ctx
// word to its numeric classifier value.
var opTokens = map[string]uint32{
	"noop":     core.NoOp,
	"read":     1,
	"write":    2,
	"bg_flush": 3,
}

// objectKindTokens is the fixed dictionary mapping a rule file's
// object-type word to the enforcement.ObjectKind it selects.
var objectKindTokens = map[string]int32{
	"noop": int32(enforcement.KindNoop),
	"drl":  int32(enforcement.KindTokenBucketPull),
}

func lookupContextType(tok string) (core.ContextType, error) {
	ct, ok := contextTypeTokens[tok]
	if !ok {
		return 0, fmt.Errorf("agent: unrecognized context-type token %q", tok)
	}
	return ct, nil
}

func lookupOpToken(tok string) (uint32, error) {
	v, ok := opTokens[tok]
	if !ok {
		return 0, fmt.Errorf("agent: unrecognized op-type/op-ctx token %q", tok)
	}
	return v, nil
}

func lookupObjectKind(tok string) (int32, error) {
	v, ok := objectKindTokens[tok]
	if !ok {
		return 0, fmt.Errorf("agent: unrecognized object-type token %q", tok)
	}
	return v, nil
}

func parseLineRuleFile(path string) (ParsedRules, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParsedRules{}, err
	}
	defer f.Close()

	var parsed ParsedRules
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		hr, er, isHousekeeping, isEnforcement, err := parseRuleLine(fields)
		if err != nil {
			return ParsedRules{}, fmt.Errorf("agent: %s:%d: %w", path, lineNum, err)
		}
		if isHousekeeping {
			parsed.Housekeeping = append(parsed.Housekeeping, hr)
		} else if isEnforcement {
			parsed.Enforcement = append(parsed.Enforcement, er)
		}
	}
	if err := scanner.Err(); err != nil {
		return ParsedRules{}, err
	}
	return parsed, nil
}

// parseRuleLine parses one non-blank, non-comment line of the
// line-oriented rule format:
//
//	rule-id create_channel channel-id context-type workflow-id op-type op-ctx
//	rule-id create_object channel-id object-id context-type op-type op-ctx object-type prop1 prop2
//	rule-id channel-id object-id object-type op [params...]
func parseRuleLine(fields []string) (hr core.HousekeepingRule, er core.EnforcementRule, isHousekeeping, isEnforcement bool, err error) {
	if len(fields) < 2 {
		err = fmt.Errorf("rule line has too few fields: %q", strings.Join(fields, " "))
		return
	}
	ruleID, perr := strconv.ParseUint(fields[0], 10, 64)
	if perr != nil {
		err = fmt.Errorf("invalid rule-id %q: %w", fields[0], perr)
		return
	}

	switch fields[1] {
	case "create_channel":
		// rule-id create_channel channel-id context-type workflow-id op-type op-ctx
		if len(fields) != 7 {
			err = fmt.Errorf("create_channel expects 7 fields, got %d", len(fields))
			return
		}
		channelID, e := strconv.ParseUint(fields[2], 10, 32)
		if e != nil {
			err = fmt.Errorf("invalid channel-id %q: %w", fields[2], e)
			return
		}
		if _, e := lookupContextType(fields[3]); e != nil {
			err = e
			return
		}
		hr = core.HousekeepingRule{
			RuleID:    ruleID,
			Operation: core.OpCreateChannel,
			ChannelID: uint32(channelID),
		}
		isHousekeeping = true
		return

	case "create_object":
		// rule-id create_object channel-id object-id context-type op-type op-ctx object-type prop1 prop2
		if len(fields) != 10 {
			err = fmt.Errorf("create_object expects 10 fields, got %d", len(fields))
			return
		}
		channelID, e := strconv.ParseUint(fields[2], 10, 32)
		if e != nil {
			err = fmt.Errorf("invalid channel-id %q: %w", fields[2], e)
			return
		}
		objectID, e := strconv.ParseUint(fields[3], 10, 32)
		if e != nil {
			err = fmt.Errorf("invalid object-id %q: %w", fields[3], e)
			return
		}
		if _, e := lookupContextType(fields[4]); e != nil {
			err = e
			return
		}
		kind, e := lookupObjectKind(fields[7])
		if e != nil {
			err = e
			return
		}
		capacity, e := strconv.ParseFloat(fields[8], 64)
		if e != nil {
			err = fmt.Errorf("invalid prop1 (capacity) %q: %w", fields[8], e)
			return
		}
		refill, e := strconv.ParseFloat(fields[9], 64)
		if e != nil {
			err = fmt.Errorf("invalid prop2 (refill_period_ms) %q: %w", fields[9], e)
			return
		}
		hr = core.HousekeepingRule{
			RuleID:     ruleID,
			Operation:  core.OpCreateObject,
			ChannelID:  uint32(channelID),
			ObjectID:   uint32(objectID),
			ObjectKind: kind,
			Properties: map[string]float64{"capacity": capacity, "refill_period_ms": refill},
		}
		isHousekeeping = true
		return

	default:
		// Enforcement line: rule-id channel-id object-id object-type op [params...]
		if len(fields) < 5 {
			err = fmt.Errorf("enforcement line expects at least 5 fields, got %d", len(fields))
			return
		}
		channelID, e := strconv.ParseUint(fields[1], 10, 32)
		if e != nil {
			err = fmt.Errorf("invalid channel-id %q: %w", fields[1], e)
			return
		}
		objectID, e := strconv.ParseUint(fields[2], 10, 32)
		if e != nil {
			err = fmt.Errorf("invalid object-id %q: %w", fields[2], e)
			return
		}
		if _, e := lookupObjectKind(fields[3]); e != nil {
			err = e
			return
		}
		props, e := parseEnforcementOp(fields[4], fields[5:])
		if e != nil {
			err = e
			return
		}
		er = core.EnforcementRule{
			RuleID:     ruleID,
			ChannelID:  uint32(channelID),
			ObjectID:   uint32(objectID),
			Properties: props,
		}
		isEnforcement = true
		return
	}
}

// parseEnforcementOp interprets the fixed "rate"/"refill"/"init" op
// dictionary against its trailing parameters, producing the property bag
// enforcement.TokenBucketPull/Push.Configure expects.
func parseEnforcementOp(op string, params []string) (map[string]float64, error) {
	switch op {
	case "rate":
		// rate is a throughput value (tokens/sec), not a capacity: the
		// bucket normalizes it against its own refill period at Configure
		// time (capacity = rate × refill-period), since this op's line
		// doesn't carry the refill period itself.
		if len(params) != 1 {
			return nil, fmt.Errorf("rate expects 1 param, got %d", len(params))
		}
		v, err := strconv.ParseFloat(params[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate param %q: %w", params[0], err)
		}
		return map[string]float64{"rate": v}, nil
	case "refill":
		if len(params) != 1 {
			return nil, fmt.Errorf("refill expects 1 param, got %d", len(params))
		}
		v, err := strconv.ParseFloat(params[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid refill param %q: %w", params[0], err)
		}
		return map[string]float64{"refill_period_ms": v}, nil
	case "init":
		if len(params) != 2 {
			return nil, fmt.Errorf("init expects 2 params, got %d", len(params))
		}
		capacity, err := strconv.ParseFloat(params[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid init capacity %q: %w", params[0], err)
		}
		refill, err := strconv.ParseFloat(params[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid init refill %q: %w", params[1], err)
		}
		return map[string]float64{"capacity": capacity, "refill_period_ms": refill}, nil
	default:
		return nil, fmt.Errorf("unrecognized enforcement op token %q", op)
	}
}
