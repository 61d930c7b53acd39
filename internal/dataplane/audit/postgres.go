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
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Postgres schema (reference):
//
// CREATE TABLE IF NOT EXISTS rule_log (
//   rule_key TEXT PRIMARY KEY,
//   last_status BIGINT NOT NULL,
//   last_token BIGINT
// );
//
// CREATE TABLE IF NOT EXISTS applied_rule_commits (
//   commit_id TEXT PRIMARY KEY,
//   rule_key TEXT NOT NULL,
//   status_code BIGINT NOT NULL,
//   ts TIMESTAMPTZ NOT NULL DEFAULT now()
// );
// CREATE INDEX IF NOT EXISTS idx_applied_rule_commits_key ON applied_rule_commits(rule_key);

// PostgresSink applies rule-application records idempotently using the
// insert-marker-then-update pattern above, inside a single transaction
// per batch.
type PostgresSink struct {
	db                *sql.DB
	createMissingKeys bool
	defaultTimeout    time.Duration
}

// NewPostgresSink builds a sink against db. If createMissingKeys is true,
// a rule_log row is inserted for any rule key seen for the first time.
func NewPostgresSink(db *sql.DB, createMissingKeys bool) *PostgresSink {
	return &PostgresSink{db: db, createMissingKeys: createMissingKeys, defaultTimeout: 10 * time.Second}
}

func (p *PostgresSink) RecordBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && p.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.defaultTimeout)
		defer cancel()
	}

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if p.createMissingKeys {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO rule_log(rule_key, last_status) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				e.RuleKey, e.StatusCode); err != nil {
				return fmt.Errorf("audit: insert rule_log(%s): %w", e.RuleKey, err)
			}
		}
	}

	for _, e := range entries {
		if e.CommitID == "" {
			return errors.New("audit: Entry.CommitID must be set")
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO applied_rule_commits(commit_id, rule_key, status_code) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`,
			e.CommitID, e.RuleKey, e.StatusCode)
		if err != nil {
			return fmt.Errorf("audit: insert applied_rule_commits(%s): %w", e.CommitID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("audit: insert applied_rule_commits(%s): %w", e.CommitID, err)
		}
		if n == 0 {
			// Marker already present: this commit was applied before.
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE rule_log SET last_status = $2 WHERE rule_key = $1`,
			e.RuleKey, e.StatusCode); err != nil {
			return fmt.Errorf("audit: update rule_log(%s): %w", e.RuleKey, err)
		}
	}

	return tx.Commit()
}
