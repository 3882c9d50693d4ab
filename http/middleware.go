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
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	stdhttp "net/http"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/duolog/duolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/duolog/duolog/http"

func init() {
	duolog.EnsurePropagation()
}

// Middleware returns an http.Handler middleware that logs one record per
// completed request, derives a request-scoped logger for handlers, and
// recovers handler panics.
//
// Record severity follows the response status: 5xx responses log at error,
// 4xx at warning, and everything else at info. Handlers retrieve the
// request-scoped logger with [duolog.FromContext]; records they emit carry
// the same request and trace labels as the completion record.
func Middleware(opts ...Option) func(stdhttp.Handler) stdhttp.Handler {
	cfg := applyOptions(opts)

	return func(next stdhttp.Handler) stdhttp.Handler {
		if next == nil {
			next = stdhttp.NotFoundHandler()
		}

		loggingHandler := buildLoggingHandler(cfg, next)
		handlerChain := wrapWithOTel(cfg, loggingHandler)

		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			// Remote trace context must be resolved before the wrapped
			// chain observes the request.
			ctx := r.Context()
			if newCtx := ensureSpanContext(ctx, r, cfg); newCtx != ctx {
				r = r.WithContext(newCtx)
			}
			handlerChain.ServeHTTP(w, r)
		})
	}
}

// buildLoggingHandler constructs the logging middleware around next.
func buildLoggingHandler(cfg *config, next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		start := time.Now()
		ctx := r.Context()
		scope := newRequestScope(r, start, cfg)

		logger := cfg.logger
		if logger == nil {
			logger = duolog.Default()
		}
		requestLogger := logger.With(requestLabels(cfg, r, scope))

		ctx = duolog.ContextWithLogger(ctx, requestLogger)
		ctx = context.WithValue(ctx, requestScopeKey{}, scope)
		r = r.WithContext(ctx)

		wrapped, recorder := wrapResponseWriter(w, scope)
		logged := shouldLog(cfg, r)

		defer func() {
			recovered := recover()
			if recovered != nil && !cfg.recoverPanics {
				scope.finalize(recorder.Status(), recorder.BytesWritten(), time.Since(start))
				panic(recovered)
			}
			if recovered != nil && !recorder.wroteHeader {
				recorder.WriteHeader(stdhttp.StatusInternalServerError)
			}
			scope.finalize(recorder.Status(), recorder.BytesWritten(), time.Since(start))
			if recovered != nil {
				requestLogger.CriticalErr(newPanicError(recovered), scope.completionLabels())
				return
			}
			if logged {
				emitCompletion(requestLogger, scope)
			}
		}()

		next.ServeHTTP(wrapped, r)
	})
}

// emitCompletion logs the terminal record for a request, mapping the
// response status onto record severity.
func emitCompletion(logger *duolog.Logger, scope *RequestScope) {
	msg := completionMessage(scope)
	labels := scope.completionLabels()
	switch status := scope.Status(); {
	case status >= stdhttp.StatusInternalServerError:
		logger.Error(msg, labels)
	case status >= stdhttp.StatusBadRequest:
		logger.Warn(msg, labels)
	default:
		logger.Info(msg, labels)
	}
}

// completionMessage renders the access log style message line.
func completionMessage(rs *RequestScope) string {
	method := rs.method
	if method == "" {
		method = "UNKNOWN"
	}
	target := rs.target
	if target == "" {
		target = "/"
	}
	return fmt.Sprintf("%s %s %d", method, target, rs.Status())
}

// shouldLog reports whether a completion record should be emitted for r.
func shouldLog(cfg *config, r *stdhttp.Request) bool {
	if cfg.shouldLog != nil && !cfg.shouldLog(r.Context(), r) {
		return false
	}
	if len(cfg.skipPathSubstrings) == 0 {
		return true
	}
	path := ""
	if r.URL != nil {
		path = r.URL.Path
	}
	for _, substr := range cfg.skipPathSubstrings {
		if strings.Contains(path, substr) {
			return false
		}
	}
	return true
}

// requestLabels assembles the labels attached to the request-scoped logger.
func requestLabels(cfg *config, r *stdhttp.Request, scope *RequestScope) duolog.Labels {
	labels := make(duolog.Labels, 12)
	if traceLabels, ok := duolog.TraceLabels(r.Context()); ok {
		for k, v := range traceLabels {
			labels[k] = v
		}
	}
	if scope.method != "" {
		labels["http.method"] = scope.method
	}
	if scope.target != "" {
		labels["http.target"] = scope.target
	}
	if cfg.includeQuery && scope.query != "" {
		labels["http.query"] = scope.query
	}
	if scope.route != "" {
		labels["http.route"] = scope.route
	}
	if scope.scheme != "" {
		labels["http.scheme"] = scope.scheme
	}
	if scope.host != "" {
		labels["http.host"] = scope.host
	}
	if scope.requestSize > 0 {
		labels["http.request_size"] = strconv.FormatInt(scope.requestSize, 10)
	}
	if cfg.includeClientIP && scope.clientIP != "" {
		labels["network.peer.ip"] = scope.clientIP
	}
	if cfg.includeUserAgent && scope.userAgent != "" {
		labels["http.user_agent"] = scope.userAgent
	}
	return labels
}

// RequestScope captures request metadata surfaced to handlers via context.
type RequestScope struct {
	start       time.Time
	method      string
	route       string
	target      string
	query       string
	scheme      string
	host        string
	clientIP    string
	userAgent   string
	requestSize int64

	status    atomic.Int64
	respBytes atomic.Int64
	latencyNS atomic.Int64
}

// newRequestScope builds a RequestScope capturing request metadata and defaults.
func newRequestScope(r *stdhttp.Request, start time.Time, cfg *config) *RequestScope {
	scope := &RequestScope{start: start}

	if r != nil {
		scope.requestSize = r.ContentLength
		scope.method = r.Method
		if r.URL != nil {
			scope.target = r.URL.Path
			scope.query = r.URL.RawQuery
		}
		scope.scheme = schemeForRequest(r, cfg)
		scope.host = r.Host
		scope.userAgent = r.UserAgent()
		if cfg.includeClientIP {
			scope.clientIP = clientIPFromRequest(r, cfg)
		}
		scope.route = routeForRequest(r, cfg)
	}

	scope.status.Store(stdhttp.StatusOK)
	scope.latencyNS.Store(-1)
	return scope
}

// completionLabels reports the response facts known once the handler
// returns.
func (rs *RequestScope) completionLabels() duolog.Labels {
	return duolog.Labels{
		"http.status_code":   strconv.Itoa(rs.Status()),
		"http.latency":       rs.Latency().String(),
		"http.response_size": strconv.FormatInt(rs.ResponseSize(), 10),
	}
}

// Method returns the HTTP method.
func (rs *RequestScope) Method() string { return rs.method }

// Target returns the request path component.
func (rs *RequestScope) Target() string { return rs.target }

// Query returns the raw query string without the '?' prefix.
func (rs *RequestScope) Query() string { return rs.query }

// Route returns the resolved route template, if known.
func (rs *RequestScope) Route() string { return rs.route }

// Status returns the response status code with a default of 200.
func (rs *RequestScope) Status() int {
	code := rs.status.Load()
	if code == 0 {
		return stdhttp.StatusOK
	}
	return int(code)
}

// Latency reports the elapsed time since the request started.
func (rs *RequestScope) Latency() time.Duration {
	ns := rs.latencyNS.Load()
	if ns >= 0 {
		return time.Duration(ns)
	}
	return time.Since(rs.start)
}

// ResponseSize returns the number of bytes written to the client.
func (rs *RequestScope) ResponseSize() int64 {
	return rs.respBytes.Load()
}

// RequestSize returns the content length reported by the client.
func (rs *RequestScope) RequestSize() int64 {
	return rs.requestSize
}

// ClientIP returns the logged peer address.
func (rs *RequestScope) ClientIP() string {
	return rs.clientIP
}

// UserAgent returns the request's User-Agent header.
func (rs *RequestScope) UserAgent() string {
	return rs.userAgent
}

// Start returns the time the request began processing.
func (rs *RequestScope) Start() time.Time {
	return rs.start
}

// setStatus records the response status, defaulting to 200 when unset.
func (rs *RequestScope) setStatus(code int) {
	if code <= 0 {
		code = stdhttp.StatusOK
	}
	rs.status.Store(int64(code))
}

// addResponseBytes accumulates response bytes if the delta is positive.
func (rs *RequestScope) addResponseBytes(delta int64) {
	if delta <= 0 {
		return
	}
	rs.respBytes.Add(delta)
}

// finalize stores the terminal status, byte count, and latency for the request.
func (rs *RequestScope) finalize(status int, bytes int64, d time.Duration) {
	rs.setStatus(status)
	if bytes >= 0 {
		rs.respBytes.Store(bytes)
	}
	if d < 0 {
		d = 0
	}
	rs.latencyNS.Store(d.Nanoseconds())
}

type requestScopeKey struct{}

// ScopeFromContext retrieves the RequestScope placed in the request context
// by the middleware.
func ScopeFromContext(ctx context.Context) (*RequestScope, bool) {
	if ctx == nil {
		return nil, false
	}
	scope, ok := ctx.Value(requestScopeKey{}).(*RequestScope)
	return scope, ok && scope != nil
}

// panicError wraps a recovered panic value together with the program
// counters captured at the recovery site, so the logger can extract and
// format the origin stack.
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

type responseRecorder struct {
	stdhttp.ResponseWriter
	scope        *RequestScope
	status       int
	wroteHeader  bool
	bytesWritten int64
}

// WriteHeader records the status code before delegating to the wrapped writer.
func (rr *responseRecorder) WriteHeader(status int) {
	if rr.wroteHeader {
		rr.ResponseWriter.WriteHeader(status)
		return
	}
	rr.status = status
	rr.scope.setStatus(status)
	rr.ResponseWriter.WriteHeader(status)
	rr.wroteHeader = true
}

// Write records bytes written and forwards the call to the underlying writer.
func (rr *responseRecorder) Write(p []byte) (int, error) {
	if !rr.wroteHeader {
		rr.WriteHeader(stdhttp.StatusOK)
	}
	n, err := rr.ResponseWriter.Write(p)
	if n > 0 {
		rr.bytesWritten += int64(n)
		rr.scope.addResponseBytes(int64(n))
	}
	return n, err
}

// ReadFrom streams data from src while tracking bytes for logging.
func (rr *responseRecorder) ReadFrom(src io.Reader) (int64, error) {
	if !rr.wroteHeader {
		rr.WriteHeader(stdhttp.StatusOK)
	}
	if rf, ok := rr.ResponseWriter.(io.ReaderFrom); ok {
		n, err := rf.ReadFrom(src)
		if n > 0 {
			rr.bytesWritten += n
			rr.scope.addResponseBytes(n)
		}
		return n, err
	}
	n, err := io.Copy(rr.ResponseWriter, src)
	if n > 0 {
		rr.bytesWritten += n
		rr.scope.addResponseBytes(n)
	}
	return n, err
}

// Status returns the HTTP status code that was written to the client.
func (rr *responseRecorder) Status() int {
	if rr.status == 0 {
		return stdhttp.StatusOK
	}
	return rr.status
}

// BytesWritten reports the cumulative number of bytes sent to the client.
func (rr *responseRecorder) BytesWritten() int64 {
	return rr.bytesWritten
}

// Unwrap exposes the underlying ResponseWriter for http.ResponseController.
func (rr *responseRecorder) Unwrap() stdhttp.ResponseWriter {
	return rr.ResponseWriter
}

// Flush forwards the flush request to the underlying ResponseWriter when supported.
func (rr *responseRecorder) Flush() {
	if flusher, ok := rr.ResponseWriter.(stdhttp.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack delegates to the wrapped Hijacker when supported, otherwise returns
// http.ErrNotSupported.
func (rr *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rr.ResponseWriter.(stdhttp.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, stdhttp.ErrNotSupported
}

// Push forwards HTTP/2 push requests when the underlying writer supports
// http.Pusher.
func (rr *responseRecorder) Push(target string, opts *stdhttp.PushOptions) error {
	if pusher, ok := rr.ResponseWriter.(stdhttp.Pusher); ok {
		return pusher.Push(target, opts)
	}
	return stdhttp.ErrNotSupported
}

// wrapResponseWriter decorates the ResponseWriter to capture response metadata.
func wrapResponseWriter(w stdhttp.ResponseWriter, scope *RequestScope) (stdhttp.ResponseWriter, *responseRecorder) {
	rec := &responseRecorder{
		ResponseWriter: w,
		scope:          scope,
		status:         stdhttp.StatusOK,
	}
	scope.setStatus(stdhttp.StatusOK)
	return rec, rec
}

// wrapWithOTel wraps handler with otelhttp instrumentation when enabled.
func wrapWithOTel(cfg *config, handler stdhttp.Handler) stdhttp.Handler {
	if !cfg.enableOTel {
		return handler
	}
	return otelhttp.NewHandler(handler, instrumentationName, otelOptions(cfg)...)
}

// otelOptions builds OpenTelemetry handler options from configuration.
func otelOptions(cfg *config) []otelhttp.Option {
	var otelOpts []otelhttp.Option
	if cfg.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(cfg.tracerProvider))
	}
	if cfg.propagatorsSet && cfg.propagators != nil {
		otelOpts = append(otelOpts, otelhttp.WithPropagators(cfg.propagators))
	}
	if cfg.publicEndpoint {
		otelOpts = append(otelOpts, otelhttp.WithPublicEndpoint())
	}
	for _, filter := range cfg.filters {
		if filter != nil {
			otelOpts = append(otelOpts, otelhttp.WithFilter(filter))
		}
	}
	return otelOpts
}

// ensureSpanContext extracts remote span context from incoming headers when
// the request context does not already carry one.
func ensureSpanContext(ctx context.Context, r *stdhttp.Request, cfg *config) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}

	propagator := cfg.propagators
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	if propagator == nil {
		return ctx
	}

	extracted := propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
	if trace.SpanContextFromContext(extracted).IsValid() {
		return extracted
	}
	return ctx
}

// routeForRequest resolves the route template from configuration or the
// ServeMux pattern recorded on the request.
func routeForRequest(r *stdhttp.Request, cfg *config) string {
	if cfg.routeGetter != nil {
		return strings.TrimSpace(cfg.routeGetter(r))
	}
	return r.Pattern
}

// schemeForRequest infers the request scheme, honoring X-Forwarded-Proto
// when proxy headers are trusted.
func schemeForRequest(r *stdhttp.Request, cfg *config) string {
	if cfg.trustProxyHeaders {
		proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")))
		if proto == "http" || proto == "https" {
			return proto
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// clientIPFromRequest determines the peer address, honoring X-Forwarded-For
// when proxy headers are trusted.
func clientIPFromRequest(r *stdhttp.Request, cfg *config) string {
	if cfg.trustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	return extractIP(r.RemoteAddr)
}

// extractIP strips the port from a host:port string and returns the host
// component.
func extractIP(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
