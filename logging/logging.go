// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package logging provides the pluggable logger used by the marshalling
// engine for non-fatal diagnostics such as suppressed cycles and
// registration warnings.
package logging

import (
	"io"
	"log"
)

// Classification is the level a log entry is classified under.
type Classification string

const (
	// Warn is used for non-fatal conditions the caller should know about.
	Warn Classification = "WARN"
	// Debug is used for verbose diagnostics.
	Debug Classification = "DEBUG"
)

// Logger is the destination for engine diagnostics. Implementations must be
// safe for concurrent use.
type Logger interface {
	Logf(classification Classification, format string, v ...interface{})
}

// Noop discards all log entries. It is the default logger.
type Noop struct{}

// Logf discards the entry.
func (Noop) Logf(Classification, string, ...interface{}) {}

// StandardLogger writes entries to a standard library log.Logger.
type StandardLogger struct {
	Logger *log.Logger
}

// Logf writes the entry prefixed with its classification.
func (s StandardLogger) Logf(classification Classification, format string, v ...interface{}) {
	s.Logger.Printf(string(classification)+" "+format, v...)
}

// NewStandardLogger returns a StandardLogger writing to w.
func NewStandardLogger(w io.Writer) StandardLogger {
	return StandardLogger{Logger: log.New(w, "", log.LstdFlags)}
}
