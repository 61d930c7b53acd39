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
	"errors"
	"fmt"
	"time"
)

// RedisEvaler abstracts the minimal surface needed from a Redis client.
// Implementations may wrap github.com/redis/go-redis/v9's Cmdable.Eval.
type RedisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// RedisSink records rule applications idempotently via a Lua script:
//  1. SETNX marker:<rule-key>:<commit-id> 1
//  2. If set -> HSET log:<rule-key> last_status <status-code>
//  3. EXPIRE the marker for leak protection.
//
// If SETNX fails (already recorded), the script is a no-op.
type RedisSink struct {
	client    RedisEvaler
	markerTTL time.Duration
}

// NewRedisSink builds a sink with the given client and marker TTL.
func NewRedisSink(client RedisEvaler, markerTTL time.Duration) *RedisSink {
	if markerTTL <= 0 {
		markerTTL = 24 * time.Hour
	}
	return &RedisSink{client: client, markerTTL: markerTTL}
}

const redisLuaScript = `
local logKey = KEYS[1]
local markerKey = KEYS[2]
local status = tonumber(ARGV[1])
local ttlSeconds = tonumber(ARGV[2])
local set = redis.call('SETNX', markerKey, 1)
if set == 1 then
  redis.call('HSET', logKey, 'last_status', status)
  if ttlSeconds and ttlSeconds > 0 then
    redis.call('EXPIRE', markerKey, ttlSeconds)
  end
  return 1
else
  return 0
end
`

// RedisLogKey and RedisMarkerKey are exported so callers composing their
// own diagnostics can address the same keyspace this sink writes to.
func RedisLogKey(ruleKey string) string { return fmt.Sprintf("audit:%s", ruleKey) }
func RedisMarkerKey(ruleKey, commitID string) string {
	return fmt.Sprintf("audit-marker:%s:%s", ruleKey, commitID)
}

// RecordBatch applies each entry with one EVAL call per entry.
func (r *RedisSink) RecordBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.CommitID == "" {
			return errors.New("audit: Entry.CommitID must be set")
		}
		keys := []string{RedisLogKey(e.RuleKey), RedisMarkerKey(e.RuleKey, e.CommitID)}
		args := []interface{}{e.StatusCode, int(r.markerTTL.Seconds())}
		if _, err := r.client.Eval(ctx, redisLuaScript, keys, args...); err != nil {
			return fmt.Errorf("audit: redis eval rule=%s commit=%s: %w", e.RuleKey, e.CommitID, err)
		}
	}
	return nil
}
