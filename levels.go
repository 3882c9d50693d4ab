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
	"strconv"
	"strings"
)

// Level represents the severity of a log event. It keeps the underlying
// integer representation of slog.Level so duolog levels interoperate with
// the standard library's logging levels and handlers.
type Level slog.Level

// Severity constants, mapped onto slog.Level integer values. Debug through
// Error reuse the standard slog values; Critical extends above Error with
// the same four-unit spacing.
const (
	// LevelDebug designates fine-grained diagnostic events.
	LevelDebug Level = Level(slog.LevelDebug) // -4

	// LevelInfo designates routine operational events. Default.
	LevelInfo Level = Level(slog.LevelInfo) // 0

	// LevelWarning designates potentially harmful situations.
	LevelWarning Level = Level(slog.LevelWarn) // 4

	// LevelError designates failures of an individual operation.
	LevelError Level = Level(slog.LevelError) // 8

	// LevelCritical designates failures that threaten the whole process.
	LevelCritical Level = 12
)

// canonical snaps l to the nearest defined constant at or below it, so
// arbitrary intermediate values behave like their closest named severity.
// Values below LevelDebug snap up to LevelDebug; values above LevelCritical
// snap down to LevelCritical. The wire enum stays closed at five names.
func (l Level) canonical() Level {
	switch {
	case l >= LevelCritical:
		return LevelCritical
	case l >= LevelError:
		return LevelError
	case l >= LevelWarning:
		return LevelWarning
	case l >= LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// String returns the wire name of the Level: "debug", "info", "warning",
// "error", or "critical". Values between defined constants render as the
// nearest lower defined level, keeping the serialized enum closed.
func (l Level) String() string {
	switch l.canonical() {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "critical"
	}
}

// Level returns the underlying slog.Level value. This method allows
// duolog.Level to satisfy the slog.Leveler interface, enabling its use in
// slog.HandlerOptions.Level and the standard slog.Logger methods.
func (l Level) Level() slog.Level {
	return slog.Level(l)
}

// ParseLevel converts a level name or integer string into a Level.
// Names are matched case-insensitively; "warn" is accepted as an alias
// for "warning". Unrecognized input returns LevelInfo and an error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "critical":
		return LevelCritical, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return Level(n), nil
	}
	return LevelInfo, fmt.Errorf("unrecognized log level %q", s)
}
