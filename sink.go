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

import (
	"io"
	"os"
)

// Sink formats a single Record and writes it to w as one line. A Sink only
// formats and writes; severity routing and label merging happen in the
// Logger before Emit is called. Implementations do not need to be safe for
// concurrent use because the owning Logger serializes Emit calls.
type Sink interface {
	Emit(w io.Writer, r Record) error
}

// Channels holds the four severity-ordered writers a Logger routes records
// to. A nil writer falls back to its DefaultChannels counterpart when the
// Logger is constructed.
type Channels struct {
	Debug   io.Writer
	Info    io.Writer
	Warning io.Writer
	Error   io.Writer
}

// DefaultChannels returns the ambient process channels: debug and info on
// stdout, warning and error on stderr.
func DefaultChannels() Channels {
	return Channels{
		Debug:   os.Stdout,
		Info:    os.Stdout,
		Warning: os.Stderr,
		Error:   os.Stderr,
	}
}

// fillDefaults substitutes the DefaultChannels writer for each nil channel.
func (c Channels) fillDefaults() Channels {
	def := DefaultChannels()
	if c.Debug == nil {
		c.Debug = def.Debug
	}
	if c.Info == nil {
		c.Info = def.Info
	}
	if c.Warning == nil {
		c.Warning = def.Warning
	}
	if c.Error == nil {
		c.Error = def.Error
	}
	return c
}

// writerFor picks the channel for a severity. Debug, warning, and error map
// to their own channels, critical shares the error channel, and info along
// with anything unrecognized falls back to the info channel.
func (c Channels) writerFor(l Level) io.Writer {
	switch l.canonical() {
	case LevelDebug:
		return c.Debug
	case LevelWarning:
		return c.Warning
	case LevelError, LevelCritical:
		return c.Error
	default:
		return c.Info
	}
}
