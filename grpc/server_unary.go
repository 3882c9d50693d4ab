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

func init() {
	duolog.EnsurePropagation()
}

// UnaryServerInterceptor returns an interceptor that logs one completion
// record per unary RPC. The record carries the service, method, status
// code, duration, and peer address; trace identifiers are included when the
// incoming metadata carries trace context. Handler panics are recovered
// into critical records and the call fails with codes.Internal unless
// [WithPanicRecovery] disables recovery.
func UnaryServerInterceptor(opts ...Option) grpc.UnaryServerInterceptor {
	cfg := processOptions(opts...)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		logger := cfg.logger
		if logger == nil {
			logger = duolog.Default()
		}

		md, _ := metadata.FromIncomingContext(ctx)
		ctx = ensureSpanContext(ctx, md, cfg)

		logged := cfg.shouldLogFunc(ctx, info.FullMethod)
		if !logged && !cfg.panicRecovery {
			return handler(ctx, req)
		}

		start := time.Now()
		service, method := splitMethodName(info.FullMethod)

		callLogger := logger.With(callLabels(ctx, service, method))
		if cfg.attachLogger {
			ctx = duolog.ContextWithLogger(ctx, callLogger)
		}

		if logged && cfg.logPayloads {
			logPayload(callLogger, cfg, payloadReceived, req)
		}

		defer func() {
			recovered := recover()
			if recovered != nil && !cfg.panicRecovery {
				panic(recovered)
			}
			if recovered != nil {
				resp = nil
				err = status.Error(codes.Internal, "internal server error caused by panic")
				callLogger.CriticalErr(newPanicError(recovered), panicLabels(md, cfg, time.Since(start)))
				return
			}
			if !logged {
				return
			}
			if err == nil && cfg.logPayloads {
				logPayload(callLogger, cfg, payloadSent, resp)
			}
			emitFinish(callLogger, cfg, service, method, md, time.Since(start), err)
		}()

		resp, err = handler(ctx, req)
		return resp, err
	}
}

// callLabels builds the per-call labels shared by every record emitted for
// an RPC: trace identity, service, method, and peer address when known.
func callLabels(ctx context.Context, service, method string) duolog.Labels {
	labels := duolog.Labels{
		grpcServiceKey: service,
		grpcMethodKey:  method,
	}
	if traceLabels, ok := duolog.TraceLabels(ctx); ok {
		for k, v := range traceLabels {
			labels[k] = v
		}
	}
	if addr := peerAddress(ctx); addr != "" {
		labels[peerAddressKey] = addr
	}
	return labels
}

// emitFinish writes the completion record for an RPC. Failed calls log the
// error itself so wrapped stacks survive; successful calls log a summary
// message. Severity follows the configured status code mapping.
func emitFinish(
	logger *duolog.Logger,
	cfg *options,
	service, method string,
	md metadata.MD,
	duration time.Duration,
	err error,
) {
	code := status.Code(err)
	labels := finishLabels(duration, err)
	if cfg.logMetadata {
		if encoded := encodeMetadata(filterMetadata(md, cfg.metadataFilterFunc)); encoded != "" {
			labels[grpcRequestMetadataKey] = encoded
		}
	}

	level := cfg.levelFunc(code)
	if err != nil {
		logger.LogErr(level, err, labels)
		return
	}
	logger.Log(level, finishMessage(service, method, code.String()), labels)
}

// panicLabels builds the labels attached to a panic record, mirroring the
// completion labels of a call that failed with codes.Internal.
func panicLabels(md metadata.MD, cfg *options, duration time.Duration) duolog.Labels {
	labels := duolog.Labels{
		grpcDurationKey: duration.String(),
		grpcCodeKey:     codes.Internal.String(),
	}
	if cfg.logMetadata {
		if encoded := encodeMetadata(filterMetadata(md, cfg.metadataFilterFunc)); encoded != "" {
			labels[grpcRequestMetadataKey] = encoded
		}
	}
	return labels
}
