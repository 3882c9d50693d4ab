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
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Logger formats log events and routes them to severity-appropriate
// channels. Its mode, sink, channels, and minimum level are resolved once,
// when New runs; per-call work is limited to merging labels, assembling a
// Record, and writing it. All methods are safe for concurrent use, and none
// of them panic or return errors to the call site.
//
// A Logger must be created by New. Child loggers created by With share the
// parent's sink, channels, level, and write ordering.
type Logger struct {
	mode     Mode
	sink     Sink
	channels Channels

	level    *slog.LevelVar
	defaults atomic.Pointer[Labels]

	captureStack bool
	stackLevel   Level

	// mu serializes sink writes. Shared with children so records from a
	// request-scoped logger never interleave with the parent's.
	mu *sync.Mutex

	clock func() time.Time
}

// New builds a Logger. Configuration is resolved in three tiers: built-in
// defaults first, then environment variables, then options, with later
// tiers overriding earlier ones. The zero-option Logger detects its mode
// from the environment, writes debug and info records to stdout, warning
// and error records to stderr, and emits every level.
func New(opts ...Option) *Logger {
	s := defaultSettings()
	s.applyEnv()
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s.build()
}

// Mode reports the execution context the Logger resolved at construction.
func (l *Logger) Mode() Mode { return l.mode }

// SetLevel changes the minimum level at which records are emitted.
func (l *Logger) SetLevel(level Level) { l.level.Set(slog.Level(level)) }

// GetLevel returns the current minimum emission level.
func (l *Logger) GetLevel() Level { return Level(l.level.Level()) }

// Configure applies runtime configuration. A nil DefaultLabels leaves the
// current default label set untouched; a non-nil map replaces it wholesale,
// so an explicitly empty map clears all defaults. The replacement is a
// single atomic pointer swap, safe against concurrent emissions.
func (l *Logger) Configure(cfg Config) {
	if cfg.DefaultLabels == nil {
		return
	}
	lbls := cfg.DefaultLabels.Clone()
	l.defaults.Store(&lbls)
}

// With returns a child Logger whose default labels are the parent's current
// defaults merged with labels, call-site values winning. The snapshot is
// taken once; later Configure calls on the parent do not affect the child.
func (l *Logger) With(labels Labels) *Logger {
	if len(labels) == 0 {
		return l
	}
	child := &Logger{
		mode:         l.mode,
		sink:         l.sink,
		channels:     l.channels,
		level:        l.level,
		captureStack: l.captureStack,
		stackLevel:   l.stackLevel,
		mu:           l.mu,
		clock:        l.clock,
	}
	merged := mergeLabels(l.defaultLabels(), labels)
	child.defaults.Store(&merged)
	return child
}

// Debug emits a record at debug severity on the debug channel.
func (l *Logger) Debug(msg string, labels ...Labels) { l.emit(LevelDebug, msg, nil, labels) }

// Info emits a record at info severity on the info channel.
func (l *Logger) Info(msg string, labels ...Labels) { l.emit(LevelInfo, msg, nil, labels) }

// Warn emits a record at warning severity on the warning channel.
func (l *Logger) Warn(msg string, labels ...Labels) { l.emit(LevelWarning, msg, nil, labels) }

// Error emits a record at error severity on the error channel.
func (l *Logger) Error(msg string, labels ...Labels) { l.emit(LevelError, msg, nil, labels) }

// Critical emits a record at critical severity. Critical records share the
// error channel.
func (l *Logger) Critical(msg string, labels ...Labels) { l.emit(LevelCritical, msg, nil, labels) }

// Err emits err at error severity. The record message is err.Error(), and
// in server mode a stack trace recorded inside err (or an error it wraps)
// is included verbatim. A nil err emits the message "<nil>".
func (l *Logger) Err(err error, labels ...Labels) {
	l.emit(LevelError, errMessage(err), err, labels)
}

// CriticalErr emits err at critical severity, with the same message and
// stack handling as Err.
func (l *Logger) CriticalErr(err error, labels ...Labels) {
	l.emit(LevelCritical, errMessage(err), err, labels)
}

// Log emits msg at an arbitrary severity. Levels between the defined
// constants route like their nearest lower named level.
func (l *Logger) Log(level Level, msg string, labels ...Labels) {
	l.emit(level, msg, nil, labels)
}

// LogErr emits err at an arbitrary severity with Err's message and stack
// handling.
func (l *Logger) LogErr(level Level, err error, labels ...Labels) {
	l.emit(level, errMessage(err), err, labels)
}

// Debugf emits a Sprintf-formatted record at debug severity.
func (l *Logger) Debugf(format string, args ...any) {
	l.emit(LevelDebug, fmt.Sprintf(format, args...), nil, nil)
}

// Infof emits a Sprintf-formatted record at info severity.
func (l *Logger) Infof(format string, args ...any) {
	l.emit(LevelInfo, fmt.Sprintf(format, args...), nil, nil)
}

// Warnf emits a Sprintf-formatted record at warning severity.
func (l *Logger) Warnf(format string, args ...any) {
	l.emit(LevelWarning, fmt.Sprintf(format, args...), nil, nil)
}

// Errorf emits a Sprintf-formatted record at error severity.
func (l *Logger) Errorf(format string, args ...any) {
	l.emit(LevelError, fmt.Sprintf(format, args...), nil, nil)
}

// Criticalf emits a Sprintf-formatted record at critical severity.
func (l *Logger) Criticalf(format string, args ...any) {
	l.emit(LevelCritical, fmt.Sprintf(format, args...), nil, nil)
}

// emit is the emission path for call sites stamped at the current time.
func (l *Logger) emit(level Level, msg string, err error, callsite []Labels) error {
	if l == nil {
		l = Default()
	}
	return l.emitAt(l.clock(), level, msg, err, callsite)
}

// emitAt merges labels, resolves the stack, assembles the record stamped at
// t, and hands it to the sink under the write lock. The returned error is
// surfaced only to in-package callers such as the slog bridge; the public
// methods discard it.
func (l *Logger) emitAt(t time.Time, level Level, msg string, err error, callsite []Labels) error {
	if !l.enabled(level) {
		return nil
	}

	labels := foldLabels(l.defaultLabels(), callsite)

	var stack string
	if l.mode == ModeServer {
		if err != nil {
			stack = extractOriginStack(err)
		}
		if stack == "" && l.captureStack && level >= l.stackLevel {
			stack, _ = CaptureStack(nil)
		}
	}

	rec := newRecord(t, level, msg, stack, labels)
	w := l.channels.writerFor(level)

	l.mu.Lock()
	emitErr := l.sink.Emit(w, rec)
	l.mu.Unlock()
	return emitErr
}

// enabled reports whether level clears the logger's minimum.
func (l *Logger) enabled(level Level) bool {
	return slog.Level(level) >= l.level.Level()
}

// defaultLabels returns the current default label set. The returned map is
// shared and must be treated as read-only.
func (l *Logger) defaultLabels() Labels {
	if p := l.defaults.Load(); p != nil {
		return *p
	}
	return nil
}

// errMessage renders an error for the record message field.
func errMessage(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
