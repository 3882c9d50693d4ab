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

package http

import (
	"context"
	stdhttp "net/http"
	"os"
	"strconv"
	"strings"

	"github.com/duolog/duolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Environment variables recognized by [Middleware]. Invalid values are
// ignored so functional options can supply overrides without additional
// error handling.
const (
	envSkipPathSubstrings = "DUOLOG_HTTP_SKIP_PATH_SUBSTRINGS"
	envRecoverPanics      = "DUOLOG_HTTP_RECOVER_PANICS"
	envTrustProxyHeaders  = "DUOLOG_HTTP_TRUST_PROXY_HEADERS"
)

// ShouldLogFunc decides whether a completed request emits a log record.
// Returning false suppresses the record while still running the wrapped
// handler.
type ShouldLogFunc func(context.Context, *stdhttp.Request) bool

// RouteGetterFunc resolves the matched route template for a request.
type RouteGetterFunc func(*stdhttp.Request) string

// config collects middleware settings layered from defaults, environment
// variables, and functional options.
type config struct {
	logger *duolog.Logger

	shouldLog          ShouldLogFunc
	skipPathSubstrings []string
	recoverPanics      bool
	trustProxyHeaders  bool

	includeQuery     bool
	includeClientIP  bool
	includeUserAgent bool
	routeGetter      RouteGetterFunc

	enableOTel     bool
	tracerProvider trace.TracerProvider
	propagators    propagation.TextMapPropagator
	propagatorsSet bool
	publicEndpoint bool
	filters        []otelhttp.Filter
}

// Option mutates the middleware configuration.
type Option func(*config)

// defaultConfig returns the configuration used before environment variables
// and functional options are applied.
func defaultConfig() *config {
	return &config{
		recoverPanics:    true,
		includeClientIP:  true,
		includeUserAgent: true,
	}
}

// applyOptions layers environment variables and functional options over the
// default configuration.
func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	applyEnv(cfg)
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// applyEnv folds recognized DUOLOG_HTTP_* environment variables into cfg.
func applyEnv(cfg *config) {
	if raw, ok := os.LookupEnv(envSkipPathSubstrings); ok {
		cfg.skipPathSubstrings = splitAndClean(raw)
	}
	if raw, ok := os.LookupEnv(envRecoverPanics); ok {
		if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			cfg.recoverPanics = v
		}
	}
	if raw, ok := os.LookupEnv(envTrustProxyHeaders); ok {
		if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			cfg.trustProxyHeaders = v
		}
	}
}

// WithLogger routes request records through logger instead of the process
// default logger.
func WithLogger(logger *duolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithShouldLog configures a predicate consulted before each completion
// record is emitted.
func WithShouldLog(fn ShouldLogFunc) Option {
	return func(cfg *config) {
		cfg.shouldLog = fn
	}
}

// WithSkipPaths suppresses completion records for requests whose URL path
// contains any of the given substrings. Matching requests still run through
// the wrapped handler.
func WithSkipPaths(substrings ...string) Option {
	cleaned := make([]string, 0, len(substrings))
	for _, value := range substrings {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		cleaned = append(cleaned, value)
	}
	return func(cfg *config) {
		cfg.skipPathSubstrings = cleaned
	}
}

// WithPanicRecovery toggles handler panic recovery. When enabled the
// middleware logs a critical record carrying the panic stack and answers
// with 500 Internal Server Error if no response was started. When disabled
// the panic is re-raised after response accounting completes.
func WithPanicRecovery(enabled bool) Option {
	return func(cfg *config) {
		cfg.recoverPanics = enabled
	}
}

// WithTrustProxyHeaders controls whether X-Forwarded-For and
// X-Forwarded-Proto influence the logged peer address and scheme.
func WithTrustProxyHeaders(trust bool) Option {
	return func(cfg *config) {
		cfg.trustProxyHeaders = trust
	}
}

// WithQueryLogging includes the raw query string under the http.query label.
// Query strings frequently carry identifiers or tokens, so this is off by
// default.
func WithQueryLogging(include bool) Option {
	return func(cfg *config) {
		cfg.includeQuery = include
	}
}

// WithClientIPLogging toggles the network.peer.ip label.
func WithClientIPLogging(include bool) Option {
	return func(cfg *config) {
		cfg.includeClientIP = include
	}
}

// WithUserAgentLogging toggles the http.user_agent label.
func WithUserAgentLogging(include bool) Option {
	return func(cfg *config) {
		cfg.includeUserAgent = include
	}
}

// WithRouteGetter resolves route templates for the http.route label when the
// router does not populate http.Request.Pattern.
func WithRouteGetter(fn RouteGetterFunc) Option {
	return func(cfg *config) {
		cfg.routeGetter = fn
	}
}

// WithOTel wraps the middleware with otelhttp instrumentation so each
// request runs inside a server span.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithTracerProvider sets the tracer provider used by the otelhttp wrapper.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}

// WithPropagators overrides the propagators used for trace extraction and
// the otelhttp wrapper. Passing nil restores the globally registered set.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.propagators = p
		cfg.propagatorsSet = p != nil
	}
}

// WithPublicEndpoint marks inbound requests as publicly reachable so the
// otelhttp wrapper links rather than parents remote spans.
func WithPublicEndpoint(public bool) Option {
	return func(cfg *config) {
		cfg.publicEndpoint = public
	}
}

// WithFilter adds an otelhttp filter deciding which requests are traced.
func WithFilter(filter otelhttp.Filter) Option {
	return func(cfg *config) {
		if filter != nil {
			cfg.filters = append(cfg.filters, filter)
		}
	}
}

// splitAndClean normalizes comma-separated configuration strings into a
// slice of trimmed, non-empty values.
func splitAndClean(input string) []string {
	parts := strings.Split(input, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cleaned = append(cleaned, part)
	}
	return cleaned
}
