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

import "sync/atomic"

var defaultLogger atomic.Pointer[Logger]

// Default returns the process-wide Logger, constructing one from the
// environment on first use. Programs that need options should build a
// Logger with New and install it with SetDefault before logging.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := New()
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide Logger. A nil argument is ignored.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// Init applies cfg to the process-wide Logger, constructing it first if
// needed. See Logger.Configure for the replacement semantics.
func Init(cfg Config) {
	Default().Configure(cfg)
}

// Debug emits a record at debug severity using the process-wide Logger.
func Debug(msg string, labels ...Labels) { Default().Debug(msg, labels...) }

// Info emits a record at info severity using the process-wide Logger.
func Info(msg string, labels ...Labels) { Default().Info(msg, labels...) }

// Warn emits a record at warning severity using the process-wide Logger.
func Warn(msg string, labels ...Labels) { Default().Warn(msg, labels...) }

// Error emits a record at error severity using the process-wide Logger.
func Error(msg string, labels ...Labels) { Default().Error(msg, labels...) }

// Critical emits a record at critical severity using the process-wide
// Logger.
func Critical(msg string, labels ...Labels) { Default().Critical(msg, labels...) }

// Err emits err at error severity using the process-wide Logger.
func Err(err error, labels ...Labels) { Default().Err(err, labels...) }

// CriticalErr emits err at critical severity using the process-wide Logger.
func CriticalErr(err error, labels ...Labels) { Default().CriticalErr(err, labels...) }

// Log emits msg at an arbitrary severity using the process-wide Logger.
func Log(level Level, msg string, labels ...Labels) { Default().Log(level, msg, labels...) }

// LogErr emits err at an arbitrary severity using the process-wide Logger.
func LogErr(level Level, err error, labels ...Labels) { Default().LogErr(level, err, labels...) }

// Debugf emits a Sprintf-formatted record at debug severity using the
// process-wide Logger.
func Debugf(format string, args ...any) { Default().Debugf(format, args...) }

// Infof emits a Sprintf-formatted record at info severity using the
// process-wide Logger.
func Infof(format string, args ...any) { Default().Infof(format, args...) }

// Warnf emits a Sprintf-formatted record at warning severity using the
// process-wide Logger.
func Warnf(format string, args ...any) { Default().Warnf(format, args...) }

// Errorf emits a Sprintf-formatted record at error severity using the
// process-wide Logger.
func Errorf(format string, args ...any) { Default().Errorf(format, args...) }

// Criticalf emits a Sprintf-formatted record at critical severity using the
// process-wide Logger.
func Criticalf(format string, args ...any) { Default().Criticalf(format, args...) }
