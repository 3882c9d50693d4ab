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
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	pkgerrors "github.com/pkg/errors"
)

// buildTag exercises the fmt.Stringer coercion path.
type buildTag string

func (b buildTag) String() string { return "build:" + string(b) }

// lazyValue exercises slog.LogValuer resolution.
type lazyValue struct{}

func (lazyValue) LogValue() slog.Value { return slog.StringValue("resolved") }

func TestHandlerEmitsRecord(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(newFixedLogger(&buf)))

	log.Info("User logged in", slog.String("userId", "1234"))

	rec := singleRecord(t, &buf)
	if rec.Level != "info" {
		t.Errorf("level = %q, want info", rec.Level)
	}
	if rec.Message != "User logged in" {
		t.Errorf("message = %q", rec.Message)
	}
	if diff := cmp.Diff(Labels{"userId": "1234"}, rec.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerEnabledRespectsLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(newFixedLogger(&buf, WithLevel(LevelWarning)))

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(info) = true below the logger minimum")
	}
	if !h.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("Enabled(warn) = false at the logger minimum")
	}

	log := slog.New(h)
	log.Info("hidden")
	log.Warn("visible")

	records := decodeAll(t, &buf)
	if len(records) != 1 || records[0].Message != "visible" {
		t.Errorf("records = %v, want the warning only", records)
	}
}

func TestHandlerSeverityMapping(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(newFixedLogger(&buf)))

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")
	log.Log(context.Background(), slog.Level(LevelCritical), "c")

	records := decodeAll(t, &buf)
	want := []string{"debug", "info", "warning", "error", "critical"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, lvl := range want {
		if records[i].Level != lvl {
			t.Errorf("records[%d].Level = %q, want %q", i, records[i].Level, lvl)
		}
	}
}

func TestHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewHandler(newFixedLogger(&buf)))
	bound := base.With(slog.String("service", "checkout"))

	bound.Info("first", slog.String("orderId", "o-1"))
	bound.Info("second")
	base.Info("unbound")

	records := decodeAll(t, &buf)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if diff := cmp.Diff(Labels{"service": "checkout", "orderId": "o-1"}, records[0].Labels); diff != "" {
		t.Errorf("first labels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Labels{"service": "checkout"}, records[1].Labels); diff != "" {
		t.Errorf("second labels mismatch (-want +got):\n%s", diff)
	}
	if len(records[2].Labels) != 0 {
		t.Errorf("base logger inherited bound attrs: %v", records[2].Labels)
	}
}

func TestHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(newFixedLogger(&buf)))

	log.WithGroup("http").WithGroup("request").Info("handled",
		slog.String("method", "GET"),
		slog.Int("status", 200),
	)

	rec := singleRecord(t, &buf)
	want := Labels{
		"http.request.method": "GET",
		"http.request.status": "200",
	}
	if diff := cmp.Diff(want, rec.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerGroupScopesOnlyLaterAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(newFixedLogger(&buf))

	scoped := h.WithAttrs([]slog.Attr{slog.String("region", "us")}).
		WithGroup("db").
		WithAttrs([]slog.Attr{slog.String("host", "primary")})
	log := slog.New(scoped)

	log.Info("query", slog.Int("rows", 3))

	rec := singleRecord(t, &buf)
	want := Labels{
		"region":  "us",
		"db.host": "primary",
		"db.rows": "3",
	}
	if diff := cmp.Diff(want, rec.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerInlineGroupAttr(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(newFixedLogger(&buf)))

	log.Info("connected",
		slog.Group("peer",
			slog.String("addr", "10.0.0.7"),
			slog.Int("port", 443),
		),
		slog.Group("empty"),
	)

	rec := singleRecord(t, &buf)
	want := Labels{
		"peer.addr": "10.0.0.7",
		"peer.port": "443",
	}
	if diff := cmp.Diff(want, rec.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerValueCoercions(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want string
	}{
		{"string", slog.String("k", "v"), "k", "v"},
		{"int", slog.Int("k", -7), "k", "-7"},
		{"uint64", slog.Uint64("k", 18446744073709551615), "k", "18446744073709551615"},
		{"float", slog.Float64("k", 2.5), "k", "2.5"},
		{"bool", slog.Bool("k", true), "k", "true"},
		{"duration", slog.Duration("k", 1500*time.Millisecond), "k", "1.5s"},
		{"time", slog.Time("k", ts), "k", "2024-01-15T10:30:00Z"},
		{"stringer", slog.Any("k", buildTag("42")), "k", "build:42"},
		{"logvaluer", slog.Any("k", lazyValue{}), "k", "resolved"},
		{"any", slog.Any("k", []int{1, 2}), "k", "[1 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(NewHandler(newFixedLogger(&buf)))

			log.Info("m", tt.attr)

			rec := singleRecord(t, &buf)
			if got := rec.Labels[tt.key]; got != tt.want {
				t.Errorf("label %q = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestHandlerSkipsEmptyAttr(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(newFixedLogger(&buf)))

	log.Info("m", slog.Attr{})

	if got := singleRecord(t, &buf).Labels; len(got) != 0 {
		t.Errorf("empty attr produced labels: %v", got)
	}
}

func TestHandlerFoldsErrorIntoMessage(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(newFixedLogger(&buf)))

	log.Error("save failed", slog.Any("err", errors.New("disk full")), slog.String("path", "/tmp/x"))

	rec := singleRecord(t, &buf)
	if rec.Message != "save failed: disk full" {
		t.Errorf("message = %q", rec.Message)
	}
	if _, ok := rec.Labels["err"]; ok {
		t.Error("folded error still present as a label")
	}
	if rec.Labels["path"] != "/tmp/x" {
		t.Errorf("sibling label lost: %v", rec.Labels)
	}
}

func TestHandlerErrorOnlyMessage(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(newFixedLogger(&buf))

	rec := slog.NewRecord(time.Time{}, slog.LevelError, "", 0)
	rec.AddAttrs(slog.Any("err", errors.New("connection reset")))
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("Handle returned %v", err)
	}

	if got := singleRecord(t, &buf).Message; got != "connection reset" {
		t.Errorf("message = %q, want the bare error text", got)
	}
}

func TestHandlerEmitsErrorStack(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(newFixedLogger(&buf)))

	log.Error("lookup failed", slog.Any("err", pkgerrors.New("no such user")))

	rec := singleRecord(t, &buf)
	if !strings.Contains(rec.Stack, "TestHandlerEmitsErrorStack") {
		t.Errorf("stack missing origin frame:\n%s", rec.Stack)
	}
}

func TestHandlerZeroTimeStampedAtEmission(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(newFixedLogger(&buf))

	rec := slog.NewRecord(time.Time{}, slog.LevelInfo, "stamped", 0)
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("Handle returned %v", err)
	}

	if got := singleRecord(t, &buf).Time; got != "2024-01-15T10:30:00.000Z" {
		t.Errorf("time = %q, want the logger clock reading", got)
	}
}

func TestHandlerNilLoggerUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	swapDefault(t, newFixedLogger(&buf))

	slog.New(NewHandler(nil)).Info("routed through default")

	if got := singleRecord(t, &buf).Message; got != "routed through default" {
		t.Errorf("message = %q", got)
	}
}

func TestHandlerMergesLoggerDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := newFixedLogger(&buf, WithDefaultLabels(Labels{"env": "prod", "zone": "a"}))
	log := slog.New(NewHandler(logger))

	log.Info("m", slog.String("zone", "b"))

	want := Labels{"env": "prod", "zone": "b"}
	if diff := cmp.Diff(want, singleRecord(t, &buf).Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}
