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
	"os"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fastjson"
)

// Environment variable names read once, at Logger construction.
const (
	// envLogLevel sets the minimum emission level by name or integer.
	envLogLevel = "LOG_LEVEL"

	// envMode forces the execution context to "server" or "client".
	envMode = "DUOLOG_MODE"

	// envStackTraceEnabled toggles current-goroutine stack capture.
	envStackTraceEnabled = "LOG_STACK_TRACE_ENABLED"

	// envStackTraceLevel sets the minimum level for stack capture.
	envStackTraceLevel = "LOG_STACK_TRACE_LEVEL"

	// envDefaultLabelsJSON holds a JSON object of default labels.
	envDefaultLabelsJSON = "DUOLOG_DEFAULT_LABELS_JSON"

	// envLabelPrefix marks per-label env vars; DUOLOG_LABEL_region=us
	// yields the default label region=us. Prefix values override the
	// JSON set on key collision.
	envLabelPrefix = "DUOLOG_LABEL_"
)

// Config carries the runtime-adjustable portion of a Logger's behavior,
// applied through Configure or the package-level Init.
type Config struct {
	// DefaultLabels replaces the logger's default label set when non-nil.
	// A nil map leaves the current defaults untouched; an empty non-nil
	// map clears them.
	DefaultLabels Labels
}

// settings accumulates construction-time configuration across the three
// tiers: built-in defaults, environment, options.
type settings struct {
	mode          Mode
	channels      Channels
	sink          Sink
	level         Level
	defaultLabels Labels
	captureStack  bool
	stackLevel    Level
	runtimeLabels bool
}

// defaultSettings returns the built-in tier. Mode detection consults
// DUOLOG_MODE itself, so the environment tier does not revisit it.
func defaultSettings() settings {
	return settings{
		mode:       DetectMode(),
		channels:   DefaultChannels(),
		level:      LevelDebug,
		stackLevel: LevelError,
	}
}

// applyEnv overlays the environment tier. Invalid values warn on stderr and
// leave the previous tier's value in place rather than failing construction.
func (s *settings) applyEnv() {
	if v := os.Getenv(envLogLevel); v != "" {
		lvl, err := ParseLevel(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[duolog config] WARNING: Invalid log level value %q in %s, defaulting to %v\n", v, envLogLevel, s.level)
		} else {
			s.level = lvl
		}
	}

	if v := os.Getenv(envStackTraceEnabled); v != "" {
		s.captureStack = parseBoolEnv(envStackTraceEnabled, v, s.captureStack)
	}

	if v := os.Getenv(envStackTraceLevel); v != "" {
		lvl, err := ParseLevel(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[duolog config] WARNING: Invalid log level value %q in %s, defaulting to %v\n", v, envStackTraceLevel, s.stackLevel)
		} else {
			s.stackLevel = lvl
		}
	}

	if labels := labelsFromEnv(); len(labels) > 0 {
		s.defaultLabels = mergeLabels(s.defaultLabels, labels)
	}
}

// build materializes a Logger from the resolved settings.
func (s settings) build() *Logger {
	sink := s.sink
	if sink == nil {
		if s.mode == ModeClient {
			sink = TextSink{}
		} else {
			sink = JSONSink{}
		}
	}

	defaults := s.defaultLabels
	if s.runtimeLabels {
		if info := DetectRuntimeInfo(); len(info.Labels) > 0 {
			defaults = mergeLabels(info.Labels, defaults)
		}
	}

	lv := new(slog.LevelVar)
	lv.Set(slog.Level(s.level))

	l := &Logger{
		mode:         s.mode,
		sink:         sink,
		channels:     s.channels.fillDefaults(),
		level:        lv,
		captureStack: s.captureStack,
		stackLevel:   s.stackLevel,
		mu:           &sync.Mutex{},
		clock:        time.Now,
	}
	if defaults != nil {
		lbls := defaults.Clone()
		l.defaults.Store(&lbls)
	}
	return l
}

// labelsFromEnv assembles default labels from DUOLOG_DEFAULT_LABELS_JSON
// and DUOLOG_LABEL_ prefixed variables, prefix values overriding JSON values.
func labelsFromEnv() Labels {
	labels := Labels{}

	if jsonStr := os.Getenv(envDefaultLabelsJSON); jsonStr != "" {
		var p fastjson.Parser
		v, err := p.Parse(jsonStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[duolog config] WARNING: Failed to parse JSON from %s: %v\n", envDefaultLabelsJSON, err)
		} else if obj, err := v.Object(); err != nil {
			fmt.Fprintf(os.Stderr, "[duolog config] WARNING: %s is not a JSON object: %v\n", envDefaultLabelsJSON, err)
		} else {
			obj.Visit(func(key []byte, val *fastjson.Value) {
				if b, serr := val.StringBytes(); serr == nil {
					labels[string(key)] = string(b)
					return
				}
				// Non-string values keep their JSON text form.
				labels[string(key)] = val.String()
			})
		}
	}

	for _, e := range os.Environ() {
		if strings.HasPrefix(e, envLabelPrefix) {
			parts := strings.SplitN(e, "=", 2)
			key := strings.TrimPrefix(parts[0], envLabelPrefix)
			if key != "" && len(parts) == 2 {
				labels[key] = parts[1]
			}
		}
	}

	if len(labels) == 0 {
		return nil
	}
	return labels
}

// parseBoolEnv interprets common boolean spellings, warning and returning
// defaultVal on anything else.
func parseBoolEnv(name, val string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	case "":
		return defaultVal
	default:
		fmt.Fprintf(os.Stderr, "[duolog config] WARNING: Invalid boolean value %q in %s, defaulting to %v\n", val, name, defaultVal)
		return defaultVal
	}
}
