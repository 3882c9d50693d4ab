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
	"runtime"
	"strconv"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// maxStackFrames caps how many frames a formatted stack trace may carry.
const maxStackFrames = 64

var stackPCPool = sync.Pool{
	New: func() any {
		buf := make([]uintptr, maxStackFrames)
		return &buf
	},
}

// stackTracer matches errors created by github.com/pkg/errors, which record
// their origin stack as a StackTrace of frames.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// pcStackTracer matches errors that expose their origin stack as raw
// program counters.
type pcStackTracer interface {
	StackTrace() []uintptr
}

// extractOriginStack walks the wrap chain of err looking for a recorded
// origin stack, in either the pkg/errors frame form or the raw program
// counter form, and formats it as a standard Go stack trace string. It
// returns an empty string when no stack is available.
func extractOriginStack(err error) string {
	if err == nil {
		return ""
	}

	var st stackTracer
	if errors.As(err, &st) {
		frames := st.StackTrace()
		if len(frames) > 0 {
			if len(frames) > maxStackFrames {
				frames = frames[:maxStackFrames]
			}
			pcs := make([]uintptr, len(frames))
			for i, f := range frames {
				pcs[i] = uintptr(f)
			}
			return formatPCsToStackString(pcs)
		}
	}

	var pct pcStackTracer
	if errors.As(err, &pct) {
		pcs := pct.StackTrace()
		if len(pcs) > 0 {
			if len(pcs) > maxStackFrames {
				pcs = pcs[:maxStackFrames]
			}
			return formatPCsToStackString(pcs)
		}
	}

	return ""
}

// formatPCsToStackString formats program counters into a standard Go stack
// trace string. It skips runtime exit frames.
func formatPCsToStackString(pcs []uintptr) string {
	if len(pcs) == 0 {
		return ""
	}

	header := currentGoroutineHeader()

	var sb strings.Builder
	if header != "" {
		sb.Grow(len(header) + len(pcs)*64)
		sb.WriteString(header)
		sb.WriteByte('\n')
	} else {
		sb.Grow(len(pcs) * 64)
	}

	var intBuf [20]byte
	frames := runtime.CallersFrames(pcs)
	frameCount := 0

	for {
		frame, more := frames.Next()

		if frame.PC == 0 {
			break
		}

		if frame.Function == "runtime.goexit" || frame.Function == "" {
			if !more {
				break
			}
			continue
		}

		sb.WriteString(frame.Function)
		sb.WriteByte('\n')
		sb.WriteByte('\t')
		sb.WriteString(frame.File)
		sb.WriteByte(':')

		lineBytes := strconv.AppendInt(intBuf[:0], int64(frame.Line), 10)
		sb.Write(lineBytes)

		if frame.PC != 0 && frame.Entry != 0 {
			var offset uintptr
			if frame.PC >= frame.Entry {
				offset = frame.PC - frame.Entry
			}
			if offset > 0 {
				sb.WriteString(" +0x")
				hexBytes := strconv.AppendUint(intBuf[:0], uint64(offset), 16)
				sb.Write(hexBytes)
			}
		}

		sb.WriteByte('\n')

		frameCount++
		if !more || frameCount >= maxStackFrames {
			break
		}
	}

	return sb.String()
}

// trimStackPCs removes leading frames that match skipFn while preserving the
// remainder.
func trimStackPCs(pcs []uintptr, skipFn func(string) bool) []uintptr {
	if len(pcs) == 0 {
		return pcs
	}

	frames := runtime.CallersFrames(pcs)
	skip := 0
	for {
		frame, more := frames.Next()
		if skipFn == nil || !skipFn(frame.Function) {
			break
		}
		skip++
		if !more {
			return nil
		}
	}
	if skip == 0 {
		return pcs
	}
	return pcs[skip:]
}

// SkipInternalStackFrame reports whether a stack frame belongs to duolog or
// runtime internals and should be skipped when presenting stack traces to
// users.
func SkipInternalStackFrame(funcName string) bool {
	if funcName == "" {
		return false
	}
	switch funcName {
	case "runtime.Callers", "runtime.goexit":
		return true
	}
	if strings.HasPrefix(funcName, "runtime.") {
		return true
	}
	if strings.HasPrefix(funcName, "github.com/duolog/duolog/") ||
		strings.HasPrefix(funcName, "github.com/duolog/duolog.") ||
		strings.HasPrefix(funcName, "log/slog.") {
		return true
	}
	return false
}

// CaptureStack captures the current goroutine stack, trimming internal
// frames using skipFn (or SkipInternalStackFrame when nil). It returns the
// formatted stack trace string and the first remaining frame.
func CaptureStack(skipFn func(string) bool) (string, runtime.Frame) {
	bufPtr := stackPCPool.Get().(*[]uintptr)
	pcs := (*bufPtr)[:cap(*bufPtr)]

	n := runtime.Callers(0, pcs)
	if n == 0 {
		stackPCPool.Put(bufPtr)
		return "", runtime.Frame{}
	}
	pcs = pcs[:n]

	if skipFn == nil {
		skipFn = SkipInternalStackFrame
	}
	trimmed := trimStackPCs(pcs, skipFn)
	if len(trimmed) == 0 {
		trimmed = pcs
	}

	var top runtime.Frame
	if len(trimmed) > 0 {
		iter := runtime.CallersFrames(trimmed)
		top, _ = iter.Next()
	}

	stack := formatPCsToStackString(trimmed)
	stackPCPool.Put(bufPtr)
	return stack, top
}

// currentGoroutineHeader returns the goroutine header emitted by
// runtime.Stack.
func currentGoroutineHeader() string {
	const fallbackHeader = "goroutine 0 [running]:"

	var buf [128]byte
	n := runtime.Stack(buf[:], false)
	if n <= 0 {
		return fallbackHeader
	}

	header := string(buf[:n])
	if idx := strings.IndexByte(header, '\n'); idx >= 0 {
		header = header[:idx]
	}
	header = strings.TrimSuffix(header, "\r")
	header = strings.TrimSpace(header)
	if header == "" {
		return fallbackHeader
	}
	return header
}
