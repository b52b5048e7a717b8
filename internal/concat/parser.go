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
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/schlaile/concatfs/internal/metrics"
)

// Parse reads a concatenation description file and returns the virtual file
// object it describes.
//
// Grammar (one entry per line, trailing newline stripped, blank lines
// ignored):
//
//	entry ::= path [ ':' [start] [ ':' [length] ] ]
//
// path is resolved relative to the directory containing descriptionPath
// unless it is already absolute. A line whose path does not stat, or which
// stats to a zero-size file, is silently dropped. start and length are
// clamped into range; malformed or absent numeric fields default to start=0
// and length="rest of file".
//
// When openBacking is true, each accepted line's backing file is opened
// read-only and the descriptor is attached to the resulting segment; the
// description file itself is also opened and attached to the returned
// VirtualFile. When openBacking is false, only sizes are accumulated and no
// descriptors beyond the description file are opened; this is the fast path
// used for metadata-only queries such as getattr.
//
// If the description file itself cannot be opened, Parse returns a nil
// VirtualFile and the underlying open error; callers on that path should
// treat the virtual file as zero-sized.
func Parse(descriptionPath string, openBacking bool) (*VirtualFile, error) {
	df, err := os.Open(descriptionPath)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(descriptionPath)

	vf := &VirtualFile{}
	if openBacking {
		vf.Description = df
	} else {
		defer df.Close()
	}

	ok := false
	defer func() {
		if !ok {
			vf.Close()
		}
	}()

	scanner := bufio.NewScanner(df)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		seg, accepted := parseLine(line, baseDir, openBacking)
		if !accepted {
			continue
		}

		vf.Segments = append(vf.Segments, seg)
		vf.Size += seg.Length
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	ok = true
	return vf, nil
}

// parseLine validates and clamps a single description line, resolving its
// path against baseDir. accepted is false when the line should be silently
// dropped (stat failure or zero-size backing file).
func parseLine(line, baseDir string, openBacking bool) (seg Segment, accepted bool) {
	path, startField, lengthField, hasOffsets := splitEntry(line)

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(baseDir, resolved)
	}

	fi, err := os.Stat(resolved)
	if err != nil {
		return Segment{}, false
	}
	size := fi.Size()
	if size < 1 {
		return Segment{}, false
	}

	start := int64(0)
	length := size // sentinel meaning "to end of file", clamped below

	if hasOffsets {
		if v, ok := parseNonNegativeInt(startField); ok {
			start = v
		}
		if v, ok := parseNonNegativeInt(lengthField); ok {
			length = v
		} else {
			length = size // length absent or unparseable: to end of file
		}
	}

	start = clamp(start, 0, size-1)
	length = clamp(length, 1, size-start)

	seg = Segment{Path: resolved, Start: start, Length: length}

	if openBacking {
		f, err := os.Open(resolved)
		if err != nil {
			// Resource exhaustion or a race where the file vanished between
			// stat and open: preserve the forgiving posture and drop the
			// line rather than failing the whole parse.
			return Segment{}, false
		}
		seg.Backing = f
	}

	label := "false"
	if openBacking {
		label = "true"
	}
	metrics.SegmentsParsed.WithLabelValues(label).Inc()

	return seg, true
}

// splitEntry splits a raw description line into its path and optional
// start/length fields. hasOffsets is true iff a ':' was present, regardless
// of whether either numeric field was itself present.
func splitEntry(line string) (path, start, length string, hasOffsets bool) {
	first := strings.IndexByte(line, ':')
	if first < 0 {
		return line, "", "", false
	}

	path = line[:first]
	rest := line[first+1:]

	second := strings.IndexByte(rest, ':')
	if second < 0 {
		return path, rest, "", true
	}

	return path, rest[:second], rest[second+1:], true
}

// parseNonNegativeInt parses a decimal non-negative integer field. An empty
// or malformed field is reported as not-ok; callers treat both the same
// way and fall back to the field's default.
func parseNonNegativeInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func clamp(x, lo, hi int64) int64 {
	if hi < lo {
		hi = lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ParseSize returns the total size that Parse would compute for
// descriptionPath, without opening any backing descriptors. It is a thin
// convenience wrapper used by getattr-style callers for which opening file
// descriptors per call would be wasteful.
func ParseSize(descriptionPath string) (int64, error) {
	vf, err := Parse(descriptionPath, false)
	if err != nil {
		return 0, err
	}
	return vf.Size, nil
}
