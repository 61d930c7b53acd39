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
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"paioctl/internal/dataplane/core"
)

// yamlRuleFile is the structured alternative to the line-oriented rule
// format, for operators who would rather author rules as YAML than as
// positional tokens. It expresses exactly the same rule set, never more.
type yamlRuleFile struct {
	Channels []yamlChannelRule `yaml:"channels"`
	Objects  []yamlObjectRule  `yaml:"objects"`
	Tunings  []yamlTuningRule  `yaml:"tunings"`
}

type yamlChannelRule struct {
	RuleID      uint64 `yaml:"rule_id"`
	ChannelID   uint32 `yaml:"channel_id"`
	ContextType string `yaml:"context_type"`
}

type yamlObjectRule struct {
	RuleID      uint64  `yaml:"rule_id"`
	ChannelID   uint32  `yaml:"channel_id"`
	ObjectID    uint32  `yaml:"object_id"`
	ContextType string  `yaml:"context_type"`
	ObjectType  string  `yaml:"object_type"`
	Capacity    float64 `yaml:"capacity"`
	RefillMS    float64 `yaml:"refill_period_ms"`
}

type yamlTuningRule struct {
	RuleID     uint64             `yaml:"rule_id"`
	ChannelID  uint32             `yaml:"channel_id"`
	ObjectID   uint32             `yaml:"object_id"`
	ObjectType string             `yaml:"object_type"`
	Op         string             `yaml:"op"`
	Params     []string           `yaml:"params"`
	Properties map[string]float64 `yaml:"properties"`
}

func parseYAMLRuleFile(path string) (ParsedRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParsedRules{}, err
	}

	var doc yamlRuleFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ParsedRules{}, fmt.Errorf("agent: parsing yaml rule file %s: %w", path, err)
	}

	var parsed ParsedRules

	for _, ch := range doc.Channels {
		if _, err := lookupContextType(ch.ContextType); err != nil {
			return ParsedRules{}, fmt.Errorf("agent: channel rule %d: %w", ch.RuleID, err)
		}
		parsed.Housekeeping = append(parsed.Housekeeping, core.HousekeepingRule{
			RuleID:    ch.RuleID,
			Operation: core.OpCreateChannel,
			ChannelID: ch.ChannelID,
		})
	}

	for _, obj := range doc.Objects {
		if _, err := lookupContextType(obj.ContextType); err != nil {
			return ParsedRules{}, fmt.Errorf("agent: object rule %d: %w", obj.RuleID, err)
		}
		kind, err := lookupObjectKind(obj.ObjectType)
		if err != nil {
			return ParsedRules{}, fmt.Errorf("agent: object rule %d: %w", obj.RuleID, err)
		}
		parsed.Housekeeping = append(parsed.Housekeeping, core.HousekeepingRule{
			RuleID:     obj.RuleID,
			Operation:  core.OpCreateObject,
			ChannelID:  obj.ChannelID,
			ObjectID:   obj.ObjectID,
			ObjectKind: kind,
			Properties: map[string]float64{"capacity": obj.Capacity, "refill_period_ms": obj.RefillMS},
		})
	}

	for _, tun := range doc.Tunings {
		if _, err := lookupObjectKind(tun.ObjectType); err != nil {
			return ParsedRules{}, fmt.Errorf("agent: tuning rule %d: %w", tun.RuleID, err)
		}
		props := tun.Properties
		if props == nil && tun.Op != "" {
			p, err := parseEnforcementOp(tun.Op, tun.Params)
			if err != nil {
				return ParsedRules{}, fmt.Errorf("agent: tuning rule %d: %w", tun.RuleID, err)
			}
			props = p
		}
		parsed.Enforcement = append(parsed.Enforcement, core.EnforcementRule{
			RuleID:     tun.RuleID,
			ChannelID:  tun.ChannelID,
			ObjectID:   tun.ObjectID,
			Properties: props,
		})
	}

	return parsed, nil
}
