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

// Package http provides net/http integration for duolog.
//
// [Middleware] wraps an [http.Handler] so every completed request emits one
// structured record. The record's severity follows the response status code:
// 5xx responses log at error, 4xx at warning, and everything else at info.
// Recovered handler panics log at critical with the origin stack and answer
// with 500 Internal Server Error when no response was started.
//
// The middleware also places a request-scoped logger in the request context.
// Records emitted through it carry the request labels (http.method,
// http.target, http.route, and friends) plus the trace correlation labels
// resolved from incoming headers, so handler logs and the completion record
// correlate to the same request and trace.
//
// # Basic Usage
//
//	logger := duolog.New()
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("GET /widgets/{id}", func(w http.ResponseWriter, r *http.Request) {
//	    duolog.FromContext(r.Context()).Info("looking up widget",
//	        duolog.Labels{"widgetId": r.PathValue("id")})
//	    w.WriteHeader(http.StatusOK)
//	})
//
//	handler := duologhttp.Middleware(
//	    duologhttp.WithLogger(logger),
//	    duologhttp.WithSkipPaths("/healthz"),
//	)(mux)
//
//	log.Fatal(http.ListenAndServe(":8080", handler))
//
// Importing this package registers the trace context propagators via
// [duolog.EnsurePropagation] so W3C traceparent and X-Cloud-Trace-Context
// headers resolve without further setup. Enable [WithOTel] to additionally
// run each request inside an otelhttp server span.
package http
