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
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryClientInterceptor returns an interceptor that logs one completion
// record per outbound unary RPC and injects the caller's trace context
// into outgoing metadata. The record carries the service, method, status
// code, duration, and target address; severity follows the configured
// status code mapping.
func UnaryClientInterceptor(opts ...Option) grpc.UnaryClientInterceptor {
	cfg := processOptions(opts...)

	return func(
		ctx context.Context,
		fullMethod string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		callOpts ...grpc.CallOption,
	) error {
		ctx = injectTraceContext(ctx, cfg)

		if !cfg.shouldLogFunc(ctx, fullMethod) {
			return invoker(ctx, fullMethod, req, reply, cc, callOpts...)
		}

		logger := cfg.logger
		if logger == nil {
			logger = duolog.Default()
		}

		start := time.Now()
		service, method := splitMethodName(fullMethod)
		callLogger := logger.With(clientCallLabels(ctx, service, method, cc))

		if cfg.logPayloads {
			logPayload(callLogger, cfg, payloadSent, req)
		}

		var header, trailer metadata.MD
		if cfg.logMetadata {
			callOpts = append(callOpts, grpc.Header(&header), grpc.Trailer(&trailer))
		}

		err := invoker(ctx, fullMethod, req, reply, cc, callOpts...)

		if err == nil && cfg.logPayloads {
			logPayload(callLogger, cfg, payloadReceived, reply)
		}

		duration := time.Since(start)
		labels := finishLabels(duration, err)
		if cfg.logMetadata {
			if encoded := encodeMetadata(filterMetadata(header, cfg.metadataFilterFunc)); encoded != "" {
				labels[grpcResponseHeaderKey] = encoded
			}
			if encoded := encodeMetadata(filterMetadata(trailer, cfg.metadataFilterFunc)); encoded != "" {
				labels[grpcResponseTrailerKey] = encoded
			}
		}

		level := cfg.levelFunc(status.Code(err))
		if err != nil {
			callLogger.LogErr(level, err, labels)
			return err
		}
		callLogger.Log(level, finishMessage(service, method, status.Code(err).String()), labels)
		return nil
	}
}

// clientCallLabels builds the per-call labels for an outbound RPC. The
// peer address is the connection target rather than a resolved endpoint.
func clientCallLabels(ctx context.Context, service, method string, cc *grpc.ClientConn) duolog.Labels {
	labels := duolog.Labels{
		grpcServiceKey: service,
		grpcMethodKey:  method,
	}
	if traceLabels, ok := duolog.TraceLabels(ctx); ok {
		for k, v := range traceLabels {
			labels[k] = v
		}
	}
	if cc != nil {
		if target := cc.CanonicalTarget(); target != "" {
			labels[peerAddressKey] = target
		}
	}
	return labels
}
