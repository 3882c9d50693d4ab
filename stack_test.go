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
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

// pcError records its origin as raw program counters, the second stack form
// extractOriginStack understands.
type pcError struct {
	msg string
	pcs []uintptr
}

func (e *pcError) Error() string         { return e.msg }
func (e *pcError) StackTrace() []uintptr { return e.pcs }

func newPCError(msg string) *pcError {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(1, pcs)
	return &pcError{msg: msg, pcs: pcs[:n]}
}

func TestExtractOriginStackNil(t *testing.T) {
	t.Parallel()

	if got := extractOriginStack(nil); got != "" {
		t.Errorf("extractOriginStack(nil) = %q, want empty", got)
	}
}

func TestExtractOriginStackPlainError(t *testing.T) {
	t.Parallel()

	if got := extractOriginStack(errors.New("no stack here")); got != "" {
		t.Errorf("extractOriginStack(plain) = %q, want empty", got)
	}
}

func TestExtractOriginStackPkgErrors(t *testing.T) {
	t.Parallel()

	stack := extractOriginStack(pkgerrors.New("boom"))
	if !strings.HasPrefix(stack, "goroutine ") {
		t.Errorf("stack missing goroutine header:\n%s", stack)
	}
	if !strings.Contains(stack, "TestExtractOriginStackPkgErrors") {
		t.Errorf("stack missing origin frame:\n%s", stack)
	}
	if !strings.Contains(stack, ".go:") {
		t.Errorf("stack missing file:line info:\n%s", stack)
	}
}

func TestExtractOriginStackSurvivesWrapping(t *testing.T) {
	t.Parallel()

	inner := pkgerrors.New("root cause")
	wrapped := fmt.Errorf("loading profile: %w", fmt.Errorf("db: %w", inner))

	stack := extractOriginStack(wrapped)
	if !strings.Contains(stack, "TestExtractOriginStackSurvivesWrapping") {
		t.Errorf("wrapping hid the origin stack:\n%s", stack)
	}
}

func TestExtractOriginStackProgramCounters(t *testing.T) {
	t.Parallel()

	stack := extractOriginStack(newPCError("raw pcs"))
	if !strings.Contains(stack, "TestExtractOriginStackProgramCounters") {
		t.Errorf("stack missing caller of newPCError:\n%s", stack)
	}
}

func TestExtractOriginStackEmptyPCs(t *testing.T) {
	t.Parallel()

	if got := extractOriginStack(&pcError{msg: "empty"}); got != "" {
		t.Errorf("extractOriginStack(no pcs) = %q, want empty", got)
	}
}

func TestCaptureStackTrimsInternalFrames(t *testing.T) {
	t.Parallel()

	stack, frame := CaptureStack(nil)
	if stack == "" {
		t.Fatal("CaptureStack returned an empty stack trace")
	}
	if !strings.HasPrefix(stack, "goroutine ") {
		t.Errorf("stack missing goroutine header:\n%s", stack)
	}
	// The default skip function removes runtime and in-package frames, so
	// the first visible frame is the test runner.
	if !strings.Contains(frame.Function, "testing.tRunner") {
		t.Errorf("top frame = %q, want testing.tRunner", frame.Function)
	}
	if strings.Contains(stack, "runtime.Callers\n") {
		t.Errorf("stack retained runtime capture frames:\n%s", stack)
	}
}

func TestCaptureStackCustomSkip(t *testing.T) {
	t.Parallel()

	stack, frame := CaptureStack(func(string) bool { return false })
	if frame.Function != "runtime.Callers" {
		t.Errorf("top frame = %q, want runtime.Callers with no trimming", frame.Function)
	}
	if !strings.Contains(stack, "TestCaptureStackCustomSkip") {
		t.Errorf("stack missing test frame:\n%s", stack)
	}
}

func TestCaptureStackSkipEverythingFallsBack(t *testing.T) {
	t.Parallel()

	stack, _ := CaptureStack(func(string) bool { return true })
	if stack == "" {
		t.Error("skip-all returned an empty stack instead of the untrimmed one")
	}
}

func TestSkipInternalStackFrame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		funcName string
		want     bool
	}{
		{"", false},
		{"runtime.Callers", true},
		{"runtime.goexit", true},
		{"runtime.gopanic", true},
		{"github.com/duolog/duolog.(*Logger).emit", true},
		{"github.com/duolog/duolog.CaptureStack", true},
		{"github.com/duolog/duolog/grpc.UnaryServerInterceptor.func1", true},
		{"log/slog.(*Logger).Info", true},
		{"testing.tRunner", false},
		{"main.main", false},
		{"github.com/duolog/duolog-sibling.Run", false},
	}

	for _, tt := range tests {
		if got := SkipInternalStackFrame(tt.funcName); got != tt.want {
			t.Errorf("SkipInternalStackFrame(%q) = %v, want %v", tt.funcName, got, tt.want)
		}
	}
}

func TestFormatPCsToStackStringEmpty(t *testing.T) {
	t.Parallel()

	if got := formatPCsToStackString(nil); got != "" {
		t.Errorf("formatPCsToStackString(nil) = %q, want empty", got)
	}
}

func TestTrimStackPCs(t *testing.T) {
	t.Parallel()

	pcs := make([]uintptr, 16)
	n := runtime.Callers(0, pcs)
	pcs = pcs[:n]

	if got := trimStackPCs(nil, SkipInternalStackFrame); got != nil {
		t.Errorf("trimStackPCs(nil) = %v, want nil", got)
	}
	if got := trimStackPCs(pcs, nil); len(got) != len(pcs) {
		t.Errorf("nil skip function trimmed %d frames", len(pcs)-len(got))
	}

	trimmed := trimStackPCs(pcs, func(fn string) bool {
		return strings.HasPrefix(fn, "runtime.")
	})
	if len(trimmed) == 0 || len(trimmed) >= len(pcs) {
		t.Errorf("trimmed %d of %d frames, want a proper leading trim", len(pcs)-len(trimmed), len(pcs))
	}

	if got := trimStackPCs(pcs, func(string) bool { return true }); got != nil {
		t.Errorf("skip-all = %v frames, want nil", len(got))
	}
}
