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

package telemetry

import (
	"log"
	"os"
)

// Level is a coarse severity used to gate which messages reach the
// underlying *log.Logger.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is a minimal leveled wrapper around the standard library logger,
// matching this stage's ambient conventions: no structured-logging
// framework is pulled in anywhere in the retrieved pack, so a thin
// *log.Logger wrapper is the idiomatic choice here rather than a
// dependency with no grounding.
type Logger struct {
	level Level
	std   *log.Logger
}

// NewLogger builds a Logger writing to os.Stderr with the given minimum
// level.
func NewLogger(level Level) *Logger {
	return &Logger{level: level, std: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)}
}

func (l *Logger) logf(level Level, prefix, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.std.Printf(prefix+" "+format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, "[DEBUG]", format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, "[INFO]", format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, "[WARN]", format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, "[ERROR]", format, args...) }
