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

package duolog_test

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/duolog/duolog"
)

// Client mode prints bare messages, which keeps example output stable. In
// server mode the same calls produce one JSON object per line, stamped with
// the emission time.
func ExampleNew() {
	logger := duolog.New(
		duolog.WithMode(duolog.ModeClient),
		duolog.WithWriter(os.Stdout),
	)

	logger.Info("service started")
	logger.Warnf("retrying in %ds", 5)
	// Output:
	// service started
	// retrying in 5s
}

func ExampleLogger_Err() {
	logger := duolog.New(
		duolog.WithMode(duolog.ModeClient),
		duolog.WithWriter(os.Stdout),
	)

	err := errors.New("connection refused")
	logger.Err(err)
	// Output:
	// connection refused
}

// With binds labels to a child logger. The labels ride along on every
// record the child emits; server mode renders them in the labels object.
func ExampleLogger_With() {
	logger := duolog.New(
		duolog.WithMode(duolog.ModeClient),
		duolog.WithWriter(os.Stdout),
	)

	reqLogger := logger.With(duolog.Labels{"requestId": "r-42"})
	reqLogger.Info("handling request")
	// Output:
	// handling request
}

func ExampleNewHandler() {
	logger := duolog.New(
		duolog.WithMode(duolog.ModeClient),
		duolog.WithWriter(os.Stdout),
	)

	log := slog.New(duolog.NewHandler(logger))
	log.Info("index rebuilt", slog.Int("docs", 42))
	// Output:
	// index rebuilt
}

func ExampleJSONSink() {
	rec := duolog.Record{
		Time:    "2024-01-15T10:30:00.000Z",
		Level:   "info",
		Message: "User logged in",
		Labels:  duolog.Labels{"userId": "1234"},
	}

	_ = duolog.JSONSink{}.Emit(os.Stdout, rec)
	// Output:
	// {"time":"2024-01-15T10:30:00.000Z","level":"info","message":"User logged in","labels":{"userId":"1234"}}
}

func ExampleParseLevel() {
	lvl, err := duolog.ParseLevel("warning")
	if err != nil {
		panic(err)
	}

	fmt.Println(lvl)
	// Output:
	// warning
}
