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

// Segment is one backing-file slice contributing to a virtual file. It is
// immutable once constructed by the parser.
//
// Invariant: Start >= 0, Length >= 1, and Start+Length <= the size of the
// backing file as observed at parse time.
type Segment struct {
	// Path is the resolved absolute path of the backing file.
	Path string

	// Backing is an open read-only descriptor on the backing file. It is nil
	// when the segment was produced by a size-only parse (see Parse's
	// openBacking argument).
	Backing *os.File

	// Start is the offset within the backing file at which this segment
	// begins.
	Start int64

	// Length is the number of bytes this segment contributes.
	Length int64
}

// Close releases the segment's backing descriptor, if any. It is safe to
// call on a segment with no open descriptor.
func (s Segment) Close() error {
	if s.Backing == nil {
		return nil
	}
	return s.Backing.Close()
}
