// Copyright 2026 The concatfs Authors.
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

// Package mountutil parses the repeated "-o name[=value]" mount option
// flag, the way gcsfuse's internal/mount package does for its own
// FuseOptions handling.
package mountutil

import "strings"

// ParseOptions parses a single comma-separated -o argument (e.g.
// "ro,allow_other,uid=1000") into m, a flag-value-style option map
// consumed by fuse.MountConfig.Options. A bare option with no "=value" is
// recorded with an empty value.
func ParseOptions(m map[string]string, s string) {
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}

		if eq := strings.IndexByte(part, '='); eq >= 0 {
			m[part[:eq]] = part[eq+1:]
		} else {
			m[part] = ""
		}
	}
}
