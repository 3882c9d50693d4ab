// Copyright 2026 The Duolog Authors
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

package duolog

import "time"

// timeLayout renders timestamps as UTC ISO-8601 with millisecond precision,
// for example "2024-01-15T10:30:00.000Z".
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// serializationFailureMessage replaces the original message when a record
// cannot be serialized.
const serializationFailureMessage = "duolog: record serialization failed"

// Record is the wire form of a single log event. The JSON encoder emits
// struct fields in declaration order, which fixes the key order consumers
// see at time, level, message, stack, labels. Stack and Labels are omitted
// when empty. A Record is assembled fresh for every emission and never
// mutated afterward.
type Record struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	Labels  Labels `json:"labels,omitempty"`
}

// newRecord assembles a Record stamped with now converted to UTC.
func newRecord(now time.Time, level Level, msg, stack string, labels Labels) Record {
	return Record{
		Time:    now.UTC().Format(timeLayout),
		Level:   level.String(),
		Message: msg,
		Stack:   stack,
		Labels:  labels,
	}
}

// fallbackRecord derives the minimal record emitted when r itself cannot be
// serialized. It keeps the original time and level and swaps the message for
// a fixed marker, dropping the fields that could have caused the failure.
func fallbackRecord(r Record) Record {
	return Record{
		Time:    r.Time,
		Level:   r.Level,
		Message: serializationFailureMessage,
	}
}
