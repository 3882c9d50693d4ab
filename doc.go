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

// Package duolog is a minimal structured-logging facade that renders each
// log event for one of two execution contexts. In server mode a [Logger]
// emits single-line JSON records with the fixed key order time, level,
// message, stack, labels; in client mode it emits just the message text,
// suited to browser consoles and other plain-text environments. Either way,
// records route to one of four severity channels: debug and info on stdout,
// warning and error (which critical shares) on stderr by default.
//
// The mode is resolved once, when the Logger is built, from an option, the
// DUOLOG_MODE environment variable, or the runtime (js builds report
// client). Labels attached at a call site merge over the Logger's default
// labels, call-site values winning on key collision, and empty results are
// omitted from the record entirely.
//
// # Quick Start
//
// The package-level functions share one process-wide Logger:
//
//	duolog.Init(duolog.Config{DefaultLabels: duolog.Labels{"env": "prod"}})
//	duolog.Info("User logged in", duolog.Labels{"userId": "1234"})
//	duolog.Err(errors.New("boom"))
//
// Programs that want explicit wiring build their own:
//
//	log := duolog.New(
//	    duolog.WithMode(duolog.ModeServer),
//	    duolog.WithDefaultLabels(duolog.Labels{"service": "checkout"}),
//	)
//	log.Warn("low disk space", duolog.Labels{"disk": "/dev/sda1"})
//
// Errors built with github.com/pkg/errors carry their origin stack into the
// record's stack field via [Logger.Err] and [Logger.CriticalErr].
//
// # Configuration
//
// Construction resolves settings in three tiers: built-in defaults, then
// environment variables (LOG_LEVEL, DUOLOG_MODE, LOG_STACK_TRACE_ENABLED,
// LOG_STACK_TRACE_LEVEL, DUOLOG_DEFAULT_LABELS_JSON, DUOLOG_LABEL_*), then
// functional options such as [WithLevel], [WithChannels], [WithSink], and
// [WithDefaultLabels]. [Logger.Configure] and [Init] adjust default labels
// at runtime with a single atomic replacement.
//
// # Subpackages
//
//   - [github.com/duolog/duolog/http] offers net/http middleware that logs
//     request completions with method, path, status, and latency labels,
//     plus optional panic recovery and OpenTelemetry instrumentation.
//   - [github.com/duolog/duolog/grpc] provides client and server
//     interceptors that log RPCs with service, method, and status code
//     labels, optional payload logging, and panic recovery.
//
// Code written against [log/slog] can emit duolog records through the
// bridge returned by [NewHandler].
package duolog
