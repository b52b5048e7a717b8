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

import (
	"io"

	"github.com/schlaile/concatfs/internal/metrics"
	"golang.org/x/sys/unix"
)

// ReadAt performs the minimum number of positional reads against backing
// descriptors needed to fill buf, starting at virtual offset vofs, honoring
// short-read semantics.
//
// ReadAt walks the segment list to find the segment containing vofs, then
// issues unix.Pread calls at absolute backing positions (never perturbing
// any descriptor's file offset, which is what makes concurrent reads across
// handles that happen to share a backing file safe). A short underlying
// read is terminal: ReadAt returns immediately with whatever was
// accumulated rather than continuing into the next segment.
//
// An offset at or beyond the total size returns (0, nil): there is nothing
// to deliver.
//
// On any I/O error (including a positional read unexpectedly returning zero
// bytes mid-concatenation), ReadAt discards bytes already accumulated in
// this call and returns (0, err). A short read is terminal-but-reported; an
// I/O error is terminal-and-discarded.
func (v *VirtualFile) ReadAt(buf []byte, vofs int64) (n int, err error) {
	defer func() {
		if n > 0 {
			metrics.VirtualBytesRead.Add(float64(n))
		}
	}()

	if vofs >= v.Size || len(buf) == 0 {
		return 0, nil
	}

	segs := v.Segments
	i := 0
	for i < len(segs) && vofs >= segs[i].Length {
		vofs -= segs[i].Length
		i++
	}

	bytesRead := 0
	remaining := buf

	for i < len(segs) && int64(len(remaining)) > segs[i].Length-vofs {
		seg := segs[i]
		want := seg.Length - vofs

		n, err := unix.Pread(int(seg.Backing.Fd()), remaining[:want], seg.Start+vofs)
		if n == int(want) {
			remaining = remaining[n:]
			bytesRead += n
			vofs = 0
			i++
			continue
		}
		if n > 0 {
			bytesRead += n
			return bytesRead, nil
		}
		if err == nil {
			// Backing file ended earlier than the segment claimed (e.g.
			// truncated after parse time): treat like any other I/O
			// failure.
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}

	if i < len(segs) && len(remaining) > 0 {
		seg := segs[i]
		n, err := unix.Pread(int(seg.Backing.Fd()), remaining, seg.Start+vofs)
		if err != nil {
			return 0, err
		}
		return bytesRead + n, nil
	}

	return bytesRead, nil
}
