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
	"strconv"

	"go.opentelemetry.io/otel/trace"
)

// Label keys carrying trace correlation identifiers.
const (
	// TraceIDLabel holds the 32-char lowercase hex trace ID.
	TraceIDLabel = "trace_id"
	// SpanIDLabel holds the 16-char lowercase hex span ID.
	SpanIDLabel = "span_id"
	// TraceSampledLabel holds "true" or "false" per the sampling decision.
	TraceSampledLabel = "trace_sampled"
)

// TraceLabels extracts OpenTelemetry trace identifiers from ctx as labels
// suitable for With or a call site. It reports false when ctx carries no
// valid span context.
//
// This helper is intentionally light-weight: it does not create spans, does
// not parse headers, and does not mutate ctx. Upstream middleware should
// populate the span context, via OTel propagators, before calling it.
func TraceLabels(ctx context.Context) (Labels, bool) {
	if ctx == nil {
		return nil, false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil, false
	}

	labels := Labels{
		TraceIDLabel:      sc.TraceID().String(),
		TraceSampledLabel: strconv.FormatBool(sc.IsSampled()),
	}
	if sc.HasSpanID() {
		labels[SpanIDLabel] = sc.SpanID().String()
	}
	return labels, true
}
