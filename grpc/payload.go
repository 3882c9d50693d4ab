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
	"fmt"
	"strconv"

	"github.com/duolog/duolog"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// payloadMarshalOptions renders payloads as compact single-line JSON using
// the original proto field names, leaving unpopulated fields out.
var payloadMarshalOptions = protojson.MarshalOptions{
	Multiline:       false,
	Indent:          "",
	AllowPartial:    true,
	UseProtoNames:   true,
	UseEnumNumbers:  false,
	EmitUnpopulated: false,
}

// logPayload marshals a request or response message and emits it as a
// debug record. Called by the unary interceptors and stream wrappers when
// payload logging is enabled. Messages that do not implement proto.Message
// are logged by type only.
func logPayload(logger *duolog.Logger, cfg *options, direction string, m any) {
	msg, ok := m.(proto.Message)
	if !ok {
		logger.Debug("grpc payload", duolog.Labels{
			payloadDirectionKey: direction,
			payloadTypeKey:      fmt.Sprintf("%T", m),
		})
		return
	}

	jsonBytes, err := payloadMarshalOptions.Marshal(msg)
	if err != nil {
		logger.Warn("failed to marshal gRPC payload for logging", duolog.Labels{
			payloadDirectionKey: direction,
			payloadTypeKey:      fmt.Sprintf("%T", m),
		})
		return
	}

	labels := duolog.Labels{
		payloadDirectionKey: direction,
		payloadTypeKey:      fmt.Sprintf("%T", m),
	}
	if limit := cfg.maxPayloadLogSize; limit > 0 && len(jsonBytes) > limit {
		labels[payloadPreviewKey] = string(jsonBytes[:limit])
		labels[payloadTruncatedKey] = "true"
		labels[payloadOriginalSizeKey] = strconv.Itoa(len(jsonBytes))
	} else {
		labels[payloadKey] = string(jsonBytes)
	}
	logger.Debug("grpc payload", labels)
}
