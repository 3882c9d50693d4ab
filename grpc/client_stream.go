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
	"errors"
	"io"
	"sync"
	"time"

	"github.com/duolog/duolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// wrappedClientStream wraps a grpc.ClientStream to log message payloads and
// to emit a single completion record when the stream ends. A stream ends
// when RecvMsg returns io.EOF (clean shutdown) or any other error.
type wrappedClientStream struct {
	grpc.ClientStream

	logger   *duolog.Logger
	cfg      *options
	service  string
	method   string
	start    time.Time
	finished sync.Once
}

// SendMsg logs the outgoing message when payload logging is enabled. Send
// failures finalize the stream since the transport is unusable afterwards.
func (w *wrappedClientStream) SendMsg(m any) error {
	if w.cfg.logPayloads {
		logPayload(w.logger, w.cfg, payloadSent, m)
	}
	err := w.ClientStream.SendMsg(m)
	if err != nil && !errors.Is(err, io.EOF) {
		w.finish(err)
	}
	return err
}

// RecvMsg logs the incoming message when payload logging is enabled and
// finalizes the stream when it ends.
func (w *wrappedClientStream) RecvMsg(m any) error {
	err := w.ClientStream.RecvMsg(m)
	if err == nil {
		if w.cfg.logPayloads {
			logPayload(w.logger, w.cfg, payloadReceived, m)
		}
		return nil
	}
	if errors.Is(err, io.EOF) {
		w.finish(nil)
	} else {
		w.finish(err)
	}
	return err
}

// finish emits the completion record exactly once.
func (w *wrappedClientStream) finish(err error) {
	w.finished.Do(func() {
		duration := time.Since(w.start)
		labels := finishLabels(duration, err)
		level := w.cfg.levelFunc(status.Code(err))
		if err != nil {
			w.logger.LogErr(level, err, labels)
			return
		}
		w.logger.Log(level, finishMessage(w.service, w.method, codes.OK.String()), labels)
	})
}

// StreamClientInterceptor returns an interceptor that logs one completion
// record per outbound streaming RPC and injects the caller's trace context
// into outgoing metadata. The record is emitted when the stream terminates,
// which the interceptor observes through RecvMsg returning io.EOF or an
// error. Stream creation failures are logged immediately.
func StreamClientInterceptor(opts ...Option) grpc.StreamClientInterceptor {
	cfg := processOptions(opts...)

	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		fullMethod string,
		streamer grpc.Streamer,
		callOpts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		ctx = injectTraceContext(ctx, cfg)

		if !cfg.shouldLogFunc(ctx, fullMethod) {
			return streamer(ctx, desc, cc, fullMethod, callOpts...)
		}

		logger := cfg.logger
		if logger == nil {
			logger = duolog.Default()
		}

		start := time.Now()
		service, method := splitMethodName(fullMethod)
		callLogger := logger.With(clientCallLabels(ctx, service, method, cc))

		stream, err := streamer(ctx, desc, cc, fullMethod, callOpts...)
		if err != nil {
			labels := finishLabels(time.Since(start), err)
			callLogger.LogErr(cfg.levelFunc(status.Code(err)), err, labels)
			return nil, err
		}

		return &wrappedClientStream{
			ClientStream: stream,
			logger:       callLogger,
			cfg:          cfg,
			service:      service,
			method:       method,
			start:        start,
		}, nil
	}
}
