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

import "io"

// TextSink renders only the record message, one per line. Time, stack, and
// labels are dropped, no matter what the record carries, so client consoles
// see the same text regardless of how a call site decorates its logs. The
// zero value is ready to use.
type TextSink struct{}

// Emit writes the message of r to w followed by a newline.
func (TextSink) Emit(w io.Writer, r Record) error {
	_, err := io.WriteString(w, r.Message+"\n")
	return err
}
