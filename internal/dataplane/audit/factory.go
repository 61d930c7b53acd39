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
	"errors"
	"fmt"
	"time"
)

// BuildSink constructs a Sink by name:
//   - "", "mock": in-process, stdout-logging sink (default)
//   - "redis": idempotent Redis adapter; uses a real client when
//     opts.RedisAddr is set, otherwise a dependency-free logging client
//   - "kafka": idempotent Kafka adapter using a logging producer
//   - "file": durable, append-only JSONL log at opts.FilePath
//   - "postgres": not wired here (returns an error to avoid a silently
//     nil *sql.DB); callers needing Postgres should build a
//     PostgresSink directly with a real connection
func BuildSink(adapter string, opts ClientOptions) (Sink, error) {
	switch adapter {
	case "", "mock":
		return NewMockSink(), nil
	case "redis":
		ttl := opts.RedisMarkerTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		var evaler RedisEvaler
		if opts.RedisAddr != "" {
			evaler = NewGoRedisEvaler(opts.RedisAddr)
		} else {
			evaler = LoggingRedisEvaler{}
		}
		return NewRedisSink(evaler, ttl), nil
	case "kafka":
		topic := opts.KafkaTopic
		if topic == "" {
			topic = "paio-rule-audit"
		}
		return NewKafkaSink(LoggingKafkaProducer{}, topic), nil
	case "file":
		if opts.FilePath == "" {
			return nil, errors.New("audit: file adapter requires ClientOptions.FilePath")
		}
		return NewFileSink(opts.FilePath)
	case "postgres":
		return nil, errors.New("audit: postgres adapter requires a real *sql.DB; construct audit.NewPostgresSink directly")
	default:
		return nil, fmt.Errorf("audit: unknown sink adapter: %s", adapter)
	}
}
