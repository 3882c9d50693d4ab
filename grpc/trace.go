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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"
)

// metadataCarrier adapts gRPC metadata to the propagation.TextMapCarrier
// interface so propagators can read and write trace headers.
type metadataCarrier struct {
	metadata.MD
}

// Get returns the first value for the provided metadata key.
func (mc metadataCarrier) Get(key string) string {
	values := mc.MD.Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Set stores the value under the provided metadata key.
func (mc metadataCarrier) Set(key string, value string) {
	mc.MD.Set(key, value)
}

// Keys reports all metadata keys present in the carrier.
func (mc metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(mc.MD))
	for k := range mc.MD {
		keys = append(keys, k)
	}
	return keys
}

// activePropagator resolves the propagator for a call, preferring the one
// configured on the interceptor over the global registration.
func activePropagator(cfg *options) propagation.TextMapPropagator {
	if cfg.propagatorsSet {
		return cfg.propagators
	}
	return otel.GetTextMapPropagator()
}

// ensureSpanContext returns a context carrying a span context, extracting
// one from incoming metadata when the context has none. Server handlers
// run with this context so trace labels reach their records.
func ensureSpanContext(ctx context.Context, md metadata.MD, cfg *options) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	propagator := activePropagator(cfg)
	if propagator == nil || len(md) == 0 {
		return ctx
	}
	extracted := propagator.Extract(ctx, metadataCarrier{md})
	if trace.SpanContextFromContext(extracted).IsValid() {
		return extracted
	}
	return ctx
}

// injectTraceContext copies the outgoing metadata, writes the current trace
// context into it, and returns a context carrying the result. Client
// interceptors call this so downstream services join the caller's trace.
func injectTraceContext(ctx context.Context, cfg *options) context.Context {
	propagator := activePropagator(cfg)
	if propagator == nil {
		return ctx
	}
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	propagator.Inject(ctx, metadataCarrier{md})
	return metadata.NewOutgoingContext(ctx, md)
}
