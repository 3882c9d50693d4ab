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

import "maps"

// Labels holds string key/value pairs attached to a log record. Default
// labels configured on a Logger merge with call-site labels at emission
// time; on key collision the call-site value wins.
type Labels map[string]string

// Clone returns an independent copy of l, or nil if l is empty.
func (l Labels) Clone() Labels {
	if len(l) == 0 {
		return nil
	}
	dup := make(Labels, len(l))
	maps.Copy(dup, l)
	return dup
}

// mergeLabels combines base and overlay, with overlay values winning on key
// collision. It returns nil when the result would be empty. When overlay is
// empty the base map is returned as-is; callers must treat the result as
// read-only because it may alias an input.
func mergeLabels(base, overlay Labels) Labels {
	if len(overlay) == 0 {
		if len(base) == 0 {
			return nil
		}
		return base
	}

	sizeHint := len(overlay)
	if base != nil {
		sizeHint += len(base)
	}
	merged := make(Labels, sizeHint)

	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}

	if len(merged) == 0 {
		return nil
	}
	return merged
}

// foldLabels merges a defaults set with each call-site set from left to
// right, later sets overriding earlier ones.
func foldLabels(base Labels, overlays []Labels) Labels {
	merged := base
	for _, o := range overlays {
		merged = mergeLabels(merged, o)
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}
