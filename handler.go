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
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// groupedAttr pairs a pre-bound attribute with the groups that were open
// when it was added.
type groupedAttr struct {
	groups []string
	attr   slog.Attr
}

// Handler bridges log/slog onto a Logger, so code written against slog
// emits duolog records. Attributes become labels, with group names joined
// into the key by dots. The first error-valued attribute is folded into the
// record instead: its text is appended to the message and, in server mode,
// a stack recorded inside it is emitted on the record's stack field.
type Handler struct {
	logger *Logger
	attrs  []groupedAttr
	groups []string
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler returns a Handler emitting through logger. A nil logger uses
// the process-wide Logger.
//
// Example:
//
//	log := slog.New(duolog.NewHandler(nil))
//	log.Info("index rebuilt", slog.Int("docs", 42))
func NewHandler(logger *Logger) *Handler {
	if logger == nil {
		logger = Default()
	}
	return &Handler{logger: logger}
}

// Enabled reports whether level clears the underlying Logger's minimum.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.enabled(Level(level))
}

// Handle converts r into a duolog Record and emits it. Records carrying a
// zero time are stamped at emission.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	labels := make(Labels, r.NumAttrs()+len(h.attrs))
	var recErr error

	for _, ga := range h.attrs {
		addAttrLabel(labels, ga.groups, ga.attr, &recErr)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttrLabel(labels, h.groups, a, &recErr)
		return true
	})

	msg := r.Message
	if recErr != nil {
		if msg == "" {
			msg = recErr.Error()
		} else {
			msg = msg + ": " + recErr.Error()
		}
	}

	var callsite []Labels
	if len(labels) > 0 {
		callsite = []Labels{labels}
	}

	t := r.Time
	if t.IsZero() {
		t = h.logger.clock()
	}
	return h.logger.emitAt(t, Level(r.Level), msg, recErr, callsite)
}

// WithAttrs returns a new Handler that includes the provided attributes on
// every emitted record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	grouped := append([]groupedAttr(nil), h.attrs...)
	baseGroups := append([]string(nil), h.groups...)
	for _, a := range attrs {
		if a.Key == "" && a.Value.Any() == nil {
			continue
		}
		grouped = append(grouped, groupedAttr{groups: baseGroups, attr: a})
	}
	return &Handler{logger: h.logger, attrs: grouped, groups: baseGroups}
}

// WithGroup nests subsequent attribute keys under name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := append(append([]string(nil), h.groups...), name)
	return &Handler{logger: h.logger, attrs: h.attrs, groups: groups}
}

// addAttrLabel flattens a into labels, joining open group names into the
// key with dots. The first error-valued attribute lands in errp instead of
// the label set.
func addAttrLabel(labels Labels, groups []string, a slog.Attr, errp *error) {
	if a.Key == "" && a.Value.Any() == nil {
		return
	}

	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		members := v.Group()
		if len(members) == 0 {
			return
		}
		g := groups
		if a.Key != "" {
			g = append(append([]string(nil), groups...), a.Key)
		}
		for _, member := range members {
			addAttrLabel(labels, g, member, errp)
		}
		return
	}

	if *errp == nil {
		if err := extractErrorFromValue(v); err != nil {
			*errp = err
			return
		}
	}

	s, ok := labelValueToString(v)
	if !ok {
		return
	}
	labels[labelKey(groups, a.Key)] = s
}

// labelKey prefixes key with the open group names.
func labelKey(groups []string, key string) string {
	if len(groups) == 0 {
		return key
	}
	return strings.Join(groups, ".") + "." + key
}

// extractErrorFromValue unwraps an error from a resolved slog.Value when
// possible.
func extractErrorFromValue(v slog.Value) error {
	if v.Kind() != slog.KindAny {
		return nil
	}
	if anyVal := v.Any(); anyVal != nil {
		if err, ok := anyVal.(error); ok {
			return err
		}
	}
	return nil
}

// labelValueToString coerces a resolved slog.Value into label text.
func labelValueToString(v slog.Value) (string, bool) {
	switch v.Kind() {
	case slog.KindString:
		return v.String(), true
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10), true
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10), true
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64), true
	case slog.KindBool:
		return strconv.FormatBool(v.Bool()), true
	case slog.KindDuration:
		return v.Duration().String(), true
	case slog.KindTime:
		return v.Time().Format(time.RFC3339), true
	case slog.KindAny:
		return labelFromAny(v.Any())
	default:
		return "", false
	}
}

// labelFromAny formats arbitrary attribute payloads for labels.
func labelFromAny(val any) (string, bool) {
	if s, ok := val.(fmt.Stringer); ok {
		return s.String(), true
	}
	if val == nil {
		return "", false
	}
	return fmt.Sprintf("%v", val), true
}
