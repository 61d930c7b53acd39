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

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// KafkaProducer is a minimal abstraction over a Kafka client. Implementations
// should enable an idempotent producer (enable.idempotence=true) and use
// CommitID as the message key so broker-level dedup plus per-rule ordering
// are preserved.
type KafkaProducer interface {
	Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error
}

// KafkaSink publishes rule applications as Kafka messages rather than
// applying them to local state; idempotency then comes from the broker's
// idempotent-producer dedup plus consumers tracking last-applied CommitID
// per RuleKey.
type KafkaSink struct {
	producer       KafkaProducer
	topic          string
	defaultTimeout time.Duration
}

// NewKafkaSink builds a sink publishing to topic.
func NewKafkaSink(p KafkaProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic, defaultTimeout: 10 * time.Second}
}

// Message is the serialized payload sent to Kafka; the message key is the
// CommitID.
type Message struct {
	RuleKey      string `json:"rule_key"`
	StatusCode   int64  `json:"status_code"`
	CommitID     string `json:"commit_id"`
	FencingToken *int64 `json:"fencing_token,omitempty"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}

func (k *KafkaSink) RecordBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && k.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.defaultTimeout)
		defer cancel()
	}
	nowMs := time.Now().UnixMilli()
	for _, e := range entries {
		if e.CommitID == "" {
			return errors.New("audit: Entry.CommitID must be set")
		}
		msg := Message{
			RuleKey:      e.RuleKey,
			StatusCode:   e.StatusCode,
			CommitID:     e.CommitID,
			FencingToken: e.FencingToken,
			TsUnixMs:     nowMs,
		}
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("audit: marshal kafka message: %w", err)
		}
		headers := map[string]string{"content-type": "application/json"}
		if err := k.producer.Produce(ctx, k.topic, []byte(e.CommitID), b, headers); err != nil {
			return fmt.Errorf("audit: kafka produce rule=%s commit=%s: %w", e.RuleKey, e.CommitID, err)
		}
	}
	return nil
}
