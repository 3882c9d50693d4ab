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
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// ServerOptions returns grpc.ServerOptions that install the unary and
// stream logging interceptors, preceded by an OpenTelemetry stats handler
// when [WithOTel] is enabled (the default). Pass the result to grpc.NewServer:
//
//	srv := grpc.NewServer(duologgrpc.ServerOptions(
//		duologgrpc.WithLogger(logger),
//	)...)
func ServerOptions(opts ...Option) []grpc.ServerOption {
	cfg := processOptions(opts...)

	var serverOpts []grpc.ServerOption
	if cfg.enableOTel {
		serverOpts = append(serverOpts,
			grpc.StatsHandler(otelgrpc.NewServerHandler(statsHandlerOptions(cfg)...)))
	}
	serverOpts = append(serverOpts,
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(opts...)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(opts...)),
	)
	return serverOpts
}

// DialOptions returns grpc.DialOptions that install the unary and stream
// client logging interceptors, preceded by an OpenTelemetry stats handler
// when [WithOTel] is enabled (the default). Pass the result to
// grpc.NewClient alongside credentials.
func DialOptions(opts ...Option) []grpc.DialOption {
	cfg := processOptions(opts...)

	var dialOpts []grpc.DialOption
	if cfg.enableOTel {
		dialOpts = append(dialOpts,
			grpc.WithStatsHandler(otelgrpc.NewClientHandler(statsHandlerOptions(cfg)...)))
	}
	dialOpts = append(dialOpts,
		grpc.WithChainUnaryInterceptor(UnaryClientInterceptor(opts...)),
		grpc.WithChainStreamInterceptor(StreamClientInterceptor(opts...)),
	)
	return dialOpts
}

// statsHandlerOptions translates interceptor configuration into otelgrpc
// options.
func statsHandlerOptions(cfg *options) []otelgrpc.Option {
	var handlerOpts []otelgrpc.Option
	if cfg.tracerProvider != nil {
		handlerOpts = append(handlerOpts, otelgrpc.WithTracerProvider(cfg.tracerProvider))
	}
	if cfg.propagatorsSet {
		handlerOpts = append(handlerOpts, otelgrpc.WithPropagators(cfg.propagators))
	}
	return handlerOpts
}
