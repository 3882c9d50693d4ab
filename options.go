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

import "io"

// Option configures a Logger during initialization via the New function.
// Options are applied sequentially, allowing later options to override
// earlier ones or settings derived from environment variables.
type Option func(*settings)

// WithMode returns an Option that pins the execution context, bypassing
// DetectMode. This setting overrides the DUOLOG_MODE environment variable.
func WithMode(m Mode) Option {
	return func(s *settings) {
		s.mode = m
	}
}

// WithChannels returns an Option that sets the severity output writers.
// Channels left nil keep their DefaultChannels counterpart, so a caller can
// replace a single channel without restating the rest.
func WithChannels(c Channels) Option {
	return func(s *settings) {
		if c.Debug != nil {
			s.channels.Debug = c.Debug
		}
		if c.Info != nil {
			s.channels.Info = c.Info
		}
		if c.Warning != nil {
			s.channels.Warning = c.Warning
		}
		if c.Error != nil {
			s.channels.Error = c.Error
		}
	}
}

// WithWriter returns an Option that points all four severity channels at a
// single writer. Useful for tests and for processes that multiplex their
// output streams anyway.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		s.channels = Channels{Debug: w, Info: w, Warning: w, Error: w}
	}
}

// WithSink returns an Option that replaces the mode-derived sink with a
// custom implementation. The mode still controls stack handling: client
// mode never resolves stacks, whatever the sink would do with them.
func WithSink(sink Sink) Option {
	return func(s *settings) {
		s.sink = sink
	}
}

// WithDefaultLabels returns an Option that sets the default label set
// applied beneath call-site labels on every record. It replaces any
// defaults collected from the environment. The map is cloned; later
// mutation by the caller has no effect.
func WithDefaultLabels(labels Labels) Option {
	return func(s *settings) {
		s.defaultLabels = labels.Clone()
	}
}

// WithLevel returns an Option that sets the minimum emission level.
// This setting overrides the LOG_LEVEL environment variable.
func WithLevel(level Level) Option {
	return func(s *settings) {
		s.level = level
	}
}

// WithStackTrace returns an Option that enables or disables capturing a
// current-goroutine stack trace for plain-message records at or above the
// stack trace level. Stacks recorded inside errors passed to Err and
// CriticalErr are always included, independent of this option. This setting
// overrides the LOG_STACK_TRACE_ENABLED environment variable.
func WithStackTrace(enabled bool) Option {
	return func(s *settings) {
		s.captureStack = enabled
	}
}

// WithStackTraceLevel returns an Option that sets the minimum level at
// which WithStackTrace capture applies. Defaults to LevelError. This
// setting overrides the LOG_STACK_TRACE_LEVEL environment variable.
func WithStackTraceLevel(level Level) Option {
	return func(s *settings) {
		s.stackLevel = level
	}
}

// WithRuntimeLabels returns an Option that merges platform labels detected
// by DetectRuntimeInfo beneath the configured default labels. Detection
// runs once per process. Defaults to false.
func WithRuntimeLabels(enabled bool) Option {
	return func(s *settings) {
		s.runtimeLabels = enabled
	}
}
