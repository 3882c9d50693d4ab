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

package duolog

import (
	"bytes"
	"io"
	"sync"

	json "github.com/goccy/go-json"
)

var jsonBufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// encodeRecord abstracts record encoding so tests can force serialization
// failures.
var encodeRecord = func(enc *json.Encoder, r Record) error {
	return enc.Encode(r)
}

// JSONSink renders each record as a single JSON line in the fixed key order
// time, level, message, stack, labels. The zero value is ready to use.
type JSONSink struct{}

// Emit writes r to w as one JSON line followed by a newline. If r cannot be
// serialized, a minimal fallback record carrying the original time and level
// and a fixed failure message is written instead, so a bad record can never
// silence the emission or panic the caller.
func (JSONSink) Emit(w io.Writer, r Record) error {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		jsonBufferPool.Put(buf)
	}()

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := encodeRecord(enc, r); err != nil {
		buf.Reset()
		enc = json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(fallbackRecord(r)); err != nil {
			return err
		}
	}

	_, err := buf.WriteTo(w)
	return err
}
