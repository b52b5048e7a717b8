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

package cfg

// Logging severity levels, ordered from most to least verbose.
const (
	TRACE   string = "TRACE"
	DEBUG   string = "DEBUG"
	INFO    string = "INFO"
	WARNING string = "WARNING"
	ERROR   string = "ERROR"
	OFF     string = "OFF"
)

// severityRank orders the severity constants for comparisons such as "is
// this severity at least as verbose as DEBUG".
var severityRank = map[string]int{
	TRACE:   0,
	DEBUG:   1,
	INFO:    2,
	WARNING: 3,
	ERROR:   4,
	OFF:     5,
}

// Rank returns severity's position in the verbosity ladder, with TRACE
// ranked lowest (most verbose). Unknown severities rank alongside INFO.
func Rank(severity string) int {
	if r, ok := severityRank[severity]; ok {
		return r
	}
	return severityRank[INFO]
}

