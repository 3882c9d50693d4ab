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
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Mode selects the output format of a Logger. It is resolved once, when the
// Logger is constructed, and never re-evaluated per call.
type Mode int

const (
	// ModeServer emits each record as a single structured JSON line.
	// This is the default for ordinary processes.
	ModeServer Mode = iota

	// ModeClient emits only the plain message text, for browser consoles
	// and other environments where structured output is noise.
	ModeClient
)

// String returns "server" or "client".
func (m Mode) String() string {
	if m == ModeClient {
		return "client"
	}
	return "server"
}

// ParseMode converts a mode name into a Mode. Unrecognized input returns
// ModeServer and an error.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "server":
		return ModeServer, nil
	case "client":
		return ModeClient, nil
	}
	return ModeServer, fmt.Errorf("unrecognized mode %q", s)
}

// DetectMode resolves the execution context of the current process. The
// DUOLOG_MODE environment variable wins when set to a valid mode name.
// Otherwise js builds report client and everything else reports server.
func DetectMode() Mode {
	if v := os.Getenv(envMode); v != "" {
		m, err := ParseMode(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[duolog config] WARNING: Invalid mode value %q in %s, defaulting to %v\n", v, envMode, ModeServer)
			return ModeServer
		}
		return m
	}
	if runtime.GOOS == "js" {
		return ModeClient
	}
	return ModeServer
}
