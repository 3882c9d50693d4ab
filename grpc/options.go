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
	"strings"

	"github.com/duolog/duolog"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
)

// Option configures the interceptors created by this package, such as
// [UnaryServerInterceptor] and [StreamServerInterceptor]. It follows the
// functional options pattern.
type Option func(*options)

// CodeToLevel maps a gRPC status code to the severity of the completion
// record. A default mapping is used when [WithLevels] is not given.
type CodeToLevel func(code codes.Code) duolog.Level

// ShouldLogFunc decides whether a call identified by its full method name
// (for example "/package.service/method") produces a completion record.
// Returning false suppresses the record; payload and metadata logging are
// skipped as well.
type ShouldLogFunc func(ctx context.Context, fullMethodName string) bool

// MetadataFilterFunc reports whether a metadata key may appear in logs.
// Keys rejected by the filter are removed before metadata is encoded.
type MetadataFilterFunc func(key string) bool

// options holds the assembled interceptor configuration.
type options struct {
	logger             *duolog.Logger
	levelFunc          CodeToLevel
	shouldLogFunc      ShouldLogFunc
	skipPaths          []string
	logPayloads        bool
	maxPayloadLogSize  int
	logMetadata        bool
	metadataFilterFunc MetadataFilterFunc
	panicRecovery      bool
	attachLogger       bool
	propagators        propagation.TextMapPropagator
	propagatorsSet     bool
	enableOTel         bool
	tracerProvider     trace.TracerProvider
}

// defaultOptions returns the baseline configuration: all calls logged at
// levels chosen by DefaultCodeToLevel, panic recovery on, request loggers
// attached to handler contexts, payload and metadata logging off.
func defaultOptions() *options {
	return &options{
		levelFunc:         DefaultCodeToLevel,
		maxPayloadLogSize: 1024,
		panicRecovery:     true,
		attachLogger:      true,
		enableOTel:        true,
	}
}

// processOptions applies opts over the defaults and composes the final
// shouldLog decision from the user predicate and any skip path list.
func processOptions(opts ...Option) *options {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	userFilter := cfg.shouldLogFunc
	skipPaths := cfg.skipPaths
	cfg.shouldLogFunc = func(ctx context.Context, fullMethodName string) bool {
		if userFilter != nil && !userFilter(ctx, fullMethodName) {
			return false
		}
		for _, fragment := range skipPaths {
			if strings.Contains(fullMethodName, fragment) {
				return false
			}
		}
		return true
	}
	return cfg
}

// DefaultCodeToLevel provides the standard mapping from gRPC status codes
// to record severities. Successful and client-cancelled calls log at info,
// caller errors and transient conditions at warning, and server faults at
// error.
func DefaultCodeToLevel(code codes.Code) duolog.Level {
	switch code {
	case codes.OK, codes.Canceled:
		return duolog.LevelInfo
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.Unauthenticated, codes.PermissionDenied:
		return duolog.LevelWarning
	case codes.DeadlineExceeded, codes.ResourceExhausted, codes.FailedPrecondition,
		codes.Aborted, codes.OutOfRange, codes.Unavailable:
		return duolog.LevelWarning
	case codes.Unknown, codes.Unimplemented, codes.Internal, codes.DataLoss:
		return duolog.LevelError
	default:
		return duolog.LevelError
	}
}

// WithLogger sets the logger the interceptors emit through. When unset the
// process-wide default logger is used.
func WithLogger(logger *duolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLevels overrides the status-code-to-severity mapping. Passing nil
// restores [DefaultCodeToLevel].
func WithLevels(f CodeToLevel) Option {
	return func(o *options) {
		if f == nil {
			o.levelFunc = DefaultCodeToLevel
			return
		}
		o.levelFunc = f
	}
}

// WithShouldLog installs a predicate consulted per call. It composes with
// [WithSkipPaths]: a call is logged only when the predicate accepts it and
// no skip fragment matches.
func WithShouldLog(f ShouldLogFunc) Option {
	return func(o *options) {
		o.shouldLogFunc = f
	}
}

// WithSkipPaths suppresses completion records for calls whose full method
// name contains any of the given fragments. Useful for health checks and
// reflection traffic, e.g. WithSkipPaths("grpc.health.v1.Health").
func WithSkipPaths(fragments ...string) Option {
	return func(o *options) {
		for _, fragment := range fragments {
			fragment = strings.TrimSpace(fragment)
			if fragment == "" {
				continue
			}
			o.skipPaths = append(o.skipPaths, fragment)
		}
	}
}

// WithPayloadLogging enables debug records carrying the JSON form of each
// request and response message. Payloads larger than the configured
// maximum are truncated; see [WithMaxPayloadSize].
func WithPayloadLogging(enabled bool) Option {
	return func(o *options) {
		o.logPayloads = enabled
	}
}

// WithMaxPayloadSize sets the payload size limit in bytes used when payload
// logging is enabled. Values below one are ignored.
func WithMaxPayloadSize(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.maxPayloadLogSize = limit
		}
	}
}

// WithMetadataLogging enables inclusion of filtered call metadata in
// completion records. Sensitive keys are removed by the metadata filter;
// see [WithMetadataFilter].
func WithMetadataLogging(enabled bool) Option {
	return func(o *options) {
		o.logMetadata = enabled
	}
}

// WithMetadataFilter replaces the default metadata filter. Passing nil
// restores the default, which removes authorization, cookie, set-cookie,
// x-csrf-token, and grpc-trace-bin keys.
func WithMetadataFilter(f MetadataFilterFunc) Option {
	return func(o *options) {
		o.metadataFilterFunc = f
	}
}

// WithPanicRecovery controls whether server interceptors recover handler
// panics. When enabled (the default) a panic produces a critical record
// with the panic stack and the call fails with codes.Internal. When
// disabled panics propagate to the gRPC runtime unchanged.
func WithPanicRecovery(enabled bool) Option {
	return func(o *options) {
		o.panicRecovery = enabled
	}
}

// WithContextLogger controls whether server interceptors attach a
// call-scoped logger to the handler context, retrievable with
// [duolog.FromContext]. Enabled by default.
func WithContextLogger(enabled bool) Option {
	return func(o *options) {
		o.attachLogger = enabled
	}
}

// WithPropagators sets the propagator used to extract trace context from
// incoming metadata and to inject it into outgoing metadata. Passing nil
// reverts to the global propagator.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.propagators = p
		o.propagatorsSet = p != nil
	}
}

// WithOTel controls whether [ServerOptions] and [DialOptions] install
// OpenTelemetry stats handlers alongside the logging interceptors. Enabled
// by default.
func WithOTel(enabled bool) Option {
	return func(o *options) {
		o.enableOTel = enabled
	}
}

// WithTracerProvider sets the tracer provider used by the OpenTelemetry
// stats handlers installed via [ServerOptions] and [DialOptions]. Defaults
// to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
