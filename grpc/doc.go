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

// Package grpc provides gRPC interceptors that log RPC traffic through a
// duolog logger. Each call produces a single completion record carrying the
// service and method names, the final status code, the call duration, and
// the peer address.
//
// # Severity
//
// Record severity follows the final status code. Successful calls log at
// info, caller errors such as NotFound or InvalidArgument at warning, and
// server faults such as Internal or Unimplemented at error. The mapping can
// be replaced with [WithLevels]. Failed calls log the status error itself,
// so any stack attached to a wrapped error appears in the record.
//
// # Server Interceptors
//
// [UnaryServerInterceptor] and [StreamServerInterceptor] also recover
// handler panics. A panic produces a critical record with the panic stack
// and the call fails with codes.Internal; [WithPanicRecovery] restores
// propagation to the gRPC runtime. Unless disabled with
// [WithContextLogger], handlers receive a call-scoped logger through their
// context:
//
//	func (s *server) GetWidget(ctx context.Context, req *pb.GetWidgetRequest) (*pb.Widget, error) {
//		duolog.FromContext(ctx).Info("checking cache")
//		// ...
//	}
//
// # Client Interceptors
//
// [UnaryClientInterceptor] and [StreamClientInterceptor] log outbound calls
// the same way and inject the caller's trace context into outgoing
// metadata, so downstream services that extract it join the caller's trace.
//
// # Basic Usage
//
//	logger := duolog.New(duolog.WithMode(duolog.ModeServer))
//
//	srv := grpc.NewServer(duologgrpc.ServerOptions(
//		duologgrpc.WithLogger(logger),
//		duologgrpc.WithSkipPaths("grpc.health.v1.Health"),
//	)...)
//
// [ServerOptions] and [DialOptions] bundle the interceptors with an
// OpenTelemetry stats handler; the interceptors can also be installed
// individually with grpc.ChainUnaryInterceptor and
// grpc.ChainStreamInterceptor. When chaining, place these interceptors
// after any that populate the context, such as authentication.
//
// Importing this package registers trace context propagation for the
// W3C traceparent and X-Cloud-Trace-Context formats, so trace labels work
// without tracer setup.
package grpc
