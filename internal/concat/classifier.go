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

// Package concat implements the concatenation engine: parsing of
// concatenation description files, the in-memory virtual file
// representation, the open-handle registry, and the segmented read
// algorithm.
package concat

import "strings"

// Marker is the substring that, when present in a path's final component,
// marks the file as a concatenation description file.
const Marker = "-concat-"

// IsVirtual reports whether path names a concatenation description file.
// Classification is strictly scoped to the final path component so that the
// marker matching a directory name earlier in the path has no effect.
func IsVirtual(path string) bool {
	return strings.Contains(basename(path), Marker)
}

// basename returns the final '/'-separated component of path. Unlike
// filepath.Base it performs no cleaning, so classification stays a pure
// function of the trailing component text.
func basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
