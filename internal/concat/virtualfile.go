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

package concat

import "os"

// VirtualFile is the materialized form of a parsed concatenation
// description: an ordered sequence of segments, each bound to an open
// read-only descriptor on its backing file, plus the total virtual size.
//
// Invariant: Size == sum of Segments[i].Length. The segment order matches
// the order of accepted lines in the description.
//
// A VirtualFile is exclusively owned by whichever structure currently holds
// it: the Registry while registered, or the caller that erased it from the
// Registry. There is no reference count; ownership is single and explicit.
type VirtualFile struct {
	Segments []Segment
	Size     int64

	// Description is the descriptor of the description file itself, opened
	// by Parse when it is asked to open backing descriptors. It is nil for
	// size-only parses, which own no descriptor to close.
	Description *os.File
}

// Close releases every backing descriptor and the description-file
// descriptor, if one is owned. It is not idempotent: a second call returns
// an error from the os.File layer for any descriptor the first call already
// closed, matching normal close semantics.
func (v *VirtualFile) Close() error {
	if v == nil {
		return nil
	}

	var first error
	for _, seg := range v.Segments {
		if err := seg.Close(); err != nil && first == nil {
			first = err
		}
	}

	if v.Description != nil {
		if err := v.Description.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
