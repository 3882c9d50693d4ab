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
	"time"

	"github.com/duolog/duolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// wrappedServerStream wraps a grpc.ServerStream to intercept SendMsg and
// RecvMsg for payload logging and to return the context enriched by the
// interceptor from Context().
type wrappedServerStream struct {
	grpc.ServerStream
	ctx    context.Context
	logger *duolog.Logger
	cfg    *options
}

// Context returns the enriched stream context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// SendMsg logs the outgoing message before handing it to the underlying
// stream when payload logging is enabled.
func (w *wrappedServerStream) SendMsg(m any) error {
	if w.cfg.logPayloads {
		logPayload(w.logger, w.cfg, payloadSent, m)
	}
	return w.ServerStream.SendMsg(m)
}

// RecvMsg logs the incoming message after a successful receive when
// payload logging is enabled.
func (w *wrappedServerStream) RecvMsg(m any) error {
	err := w.ServerStream.RecvMsg(m)
	if err == nil && w.cfg.logPayloads {
		logPayload(w.logger, w.cfg, payloadReceived, m)
	}
	return err
}

// contextOnlyServerStream overrides only Context() so handlers for calls
// filtered out of logging still see the context produced by trace
// extraction.
type contextOnlyServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the enriched stream context.
func (c *contextOnlyServerStream) Context() context.Context {
	return c.ctx
}

// StreamServerInterceptor returns an interceptor that logs one completion
// record per streaming RPC, emitted when the handler returns. The record
// carries the same labels as the unary interceptor; individual messages
// are logged only when [WithPayloadLogging] is enabled. Panics follow the
// [WithPanicRecovery] setting.
func StreamServerInterceptor(opts ...Option) grpc.StreamServerInterceptor {
	cfg := processOptions(opts...)

	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		logger := cfg.logger
		if logger == nil {
			logger = duolog.Default()
		}

		ctx := ss.Context()
		md, _ := metadata.FromIncomingContext(ctx)
		ctx = ensureSpanContext(ctx, md, cfg)

		logged := cfg.shouldLogFunc(ctx, info.FullMethod)
		if !logged && !cfg.panicRecovery {
			return handler(srv, &contextOnlyServerStream{ServerStream: ss, ctx: ctx})
		}

		start := time.Now()
		service, method := splitMethodName(info.FullMethod)

		callLogger := logger.With(callLabels(ctx, service, method))
		if cfg.attachLogger {
			ctx = duolog.ContextWithLogger(ctx, callLogger)
		}

		var stream grpc.ServerStream
		if logged {
			stream = &wrappedServerStream{
				ServerStream: ss,
				ctx:          ctx,
				logger:       callLogger,
				cfg:          cfg,
			}
		} else {
			stream = &contextOnlyServerStream{ServerStream: ss, ctx: ctx}
		}

		defer func() {
			recovered := recover()
			if recovered != nil && !cfg.panicRecovery {
				panic(recovered)
			}
			if recovered != nil {
				err = status.Error(codes.Internal, "internal server error caused by panic")
				callLogger.CriticalErr(newPanicError(recovered), panicLabels(md, cfg, time.Since(start)))
				return
			}
			if !logged {
				return
			}
			emitFinish(callLogger, cfg, service, method, md, time.Since(start), err)
		}()

		return handler(srv, stream)
	}
}
