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

package grpc

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/duolog/duolog"
	json "github.com/goccy/go-json"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Label keys used by the interceptors. They form a consistent schema across
// client and server logs so gRPC traffic can be queried uniformly.
const (
	grpcServiceKey  = "grpc.service"  // Service name from the full method path.
	grpcMethodKey   = "grpc.method"   // Method name from the full path.
	grpcCodeKey     = "grpc.code"     // Final status code as a string, e.g. "OK".
	grpcDurationKey = "grpc.duration" // Total call duration.
	peerAddressKey  = "peer.address"  // Remote endpoint address.

	grpcRequestMetadataKey = "grpc.request.metadata" // Filtered request metadata as JSON.
	grpcResponseHeaderKey  = "grpc.response.header"  // Filtered response headers as JSON.
	grpcResponseTrailerKey = "grpc.response.trailer" // Filtered trailers as JSON.

	payloadDirectionKey    = "grpc.payload.direction"     // Either "sent" or "received".
	payloadTypeKey         = "grpc.payload.type"          // Go type of the message.
	payloadKey             = "grpc.payload.content"       // Full JSON payload.
	payloadPreviewKey      = "grpc.payload.preview"       // Truncated payload content.
	payloadTruncatedKey    = "grpc.payload.truncated"     // "true" when the payload was cut.
	payloadOriginalSizeKey = "grpc.payload.original_size" // Size in bytes before truncation.
)

const (
	payloadSent     = "sent"
	payloadReceived = "received"
)

// splitMethodName parses a gRPC full method name of the form
// "/package.Service/Method" into its service and method components. Missing
// service components resolve to "unknown".
func splitMethodName(fullMethodName string) (service, method string) {
	fullMethodName = strings.TrimPrefix(fullMethodName, "/")
	service = path.Dir(fullMethodName)
	method = path.Base(fullMethodName)
	if service == "." || service == "" {
		service = "unknown"
	}
	return service, method
}

// finishMessage renders the completion message for a successful call.
func finishMessage(service, method string, code string) string {
	return fmt.Sprintf("%s/%s %s", service, method, code)
}

// finishLabels assembles the labels reported when an RPC completes.
func finishLabels(duration time.Duration, err error) duolog.Labels {
	return duolog.Labels{
		grpcDurationKey: duration.String(),
		grpcCodeKey:     status.Code(err).String(),
	}
}

// peerAddress reports the remote endpoint recorded in ctx, or an empty
// string when unknown.
func peerAddress(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// defaultMetadataFilter excludes common credential-bearing metadata keys
// from logs: authorization, cookie, set-cookie, x-csrf-token, and
// grpc-trace-bin (binary trace state handled by the tracer). The check is
// case-insensitive.
func defaultMetadataFilter(key string) bool {
	switch strings.ToLower(key) {
	case "authorization", "cookie", "set-cookie", "x-csrf-token", "grpc-trace-bin":
		return false
	default:
		return true
	}
}

// filterMetadata returns a copy of md containing only the keys accepted by
// filterFunc (or defaultMetadataFilter when nil). It returns nil when
// nothing survives filtering.
func filterMetadata(md metadata.MD, filterFunc MetadataFilterFunc) metadata.MD {
	if filterFunc == nil {
		filterFunc = defaultMetadataFilter
	}
	if len(md) == 0 {
		return nil
	}
	filtered := metadata.MD{}
	for k, v := range md {
		if filterFunc(k) {
			valsCopy := make([]string, len(v))
			copy(valsCopy, v)
			filtered[k] = valsCopy
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

// encodeMetadata renders filtered metadata as a compact JSON string for use
// as a label value. It returns an empty string when md is empty or cannot
// be encoded.
func encodeMetadata(md metadata.MD) string {
	if len(md) == 0 {
		return ""
	}
	encoded, err := json.Marshal(md)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// panicError wraps a value recovered from a handler panic together with the
// program counters captured at the recovery site, so the logger can extract
// and format the origin stack.
type panicError struct {
	value any
	pcs   []uintptr
}

// newPanicError captures the current stack and wraps the recovered value.
func newPanicError(value any) *panicError {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(3, pcs)
	return &panicError{value: value, pcs: trimPanicFrames(pcs[:n])}
}

// Error renders the panic value in the form the runtime would print.
func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// StackTrace returns the program counters captured when the panic was
// recovered.
func (e *panicError) StackTrace() []uintptr {
	return e.pcs
}

// trimPanicFrames drops the leading runtime frames between the recovery
// site and the function that panicked.
func trimPanicFrames(pcs []uintptr) []uintptr {
	if len(pcs) == 0 {
		return pcs
	}
	frames := runtime.CallersFrames(pcs)
	skip := 0
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			break
		}
		skip++
		if !more {
			break
		}
	}
	if skip == 0 || skip >= len(pcs) {
		return pcs
	}
	return pcs[skip:]
}
