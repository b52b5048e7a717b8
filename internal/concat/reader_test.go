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

package concat_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/schlaile/concatfs/internal/concat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

type ReaderTest struct {
	suite.Suite
	dir string
}

func TestReaderSuite(t *testing.T) {
	suite.Run(t, new(ReaderTest))
}

func (t *ReaderTest) SetupTest() {
	t.dir = t.T().TempDir()
}

func (t *ReaderTest) writeFile(name, contents string) string {
	p := filepath.Join(t.dir, name)
	require.NoError(t.T(), os.WriteFile(p, []byte(contents), 0o644))
	return p
}

func (t *ReaderTest) writeDescription(name string, lines ...string) string {
	contents := ""
	for _, l := range lines {
		contents += l + "\n"
	}
	return t.writeFile(name, contents)
}

func (t *ReaderTest) readAll(vf *concat.VirtualFile, offset int64, n int) string {
	buf := make([]byte, n)
	read, err := vf.ReadAt(buf, offset)
	require.NoError(t.T(), err)
	return string(buf[:read])
}

// Reads spanning whole-file segments, including a mid-stream slice.
func (t *ReaderTest) TestReadsAcrossWholeFileSegments() {
	t.writeFile("a", "AAAA")
	t.writeFile("b", "BB")
	t.writeFile("c", "CCC")
	desc := t.writeDescription("m-concat-x", "a", "b", "c")

	vf, err := concat.Parse(desc, true)
	require.NoError(t.T(), err)
	defer vf.Close()

	assert.Equal(t.T(), "AAAABBCCC", t.readAll(vf, 0, 9))
	assert.Equal(t.T(), "BB", t.readAll(vf, 4, 2))
	assert.Equal(t.T(), "ABBC", t.readAll(vf, 3, 4))
}

// Reads across two slices of the same backing file.
func (t *ReaderTest) TestReadsAcrossSlicesOfOneBackingFile() {
	t.writeFile("a", "0123456789")
	desc := t.writeDescription("b-concat-y", "a:2:5", "a:7:")

	vf, err := concat.Parse(desc, true)
	require.NoError(t.T(), err)
	defer vf.Close()

	assert.Equal(t.T(), "23456789", t.readAll(vf, 0, 8))
}

func (t *ReaderTest) TestEmptyDescriptionReadsZero() {
	desc := t.writeDescription("empty-concat-d")

	vf, err := concat.Parse(desc, true)
	require.NoError(t.T(), err)
	defer vf.Close()

	buf := make([]byte, 10)
	n, err := vf.ReadAt(buf, 0)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), 0, n)
}

func (t *ReaderTest) TestOffsetEqualToSizeReadsZero() {
	t.writeFile("a", "AAAA")
	desc := t.writeDescription("m-concat-x", "a")

	vf, err := concat.Parse(desc, true)
	require.NoError(t.T(), err)
	defer vf.Close()

	buf := make([]byte, 10)
	n, err := vf.ReadAt(buf, vf.Size)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), 0, n)
}

func (t *ReaderTest) TestOffsetBeyondSizeReadsZero() {
	t.writeFile("a", "AAAA")
	desc := t.writeDescription("m-concat-x", "a")

	vf, err := concat.Parse(desc, true)
	require.NoError(t.T(), err)
	defer vf.Close()

	buf := make([]byte, 10)
	n, err := vf.ReadAt(buf, vf.Size+100)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), 0, n)
}

// A short underlying read is terminal: the engine returns what it got and
// does not continue into the next segment.
func (t *ReaderTest) TestShortReadIsTerminal() {
	// Segment claims more bytes than the backing file actually has by the
	// time we read, by truncating after parse time.
	p := t.writeFile("a", "0123456789")
	desc := t.writeDescription("m-concat-x", "a")

	vf, err := concat.Parse(desc, true)
	require.NoError(t.T(), err)
	defer vf.Close()

	require.NoError(t.T(), os.Truncate(p, 3))

	buf := make([]byte, 10)
	n, err := vf.ReadAt(buf, 0)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), 3, n)
	assert.Equal(t.T(), "012", string(buf[:n]))
}

// Splitting a read range at any point yields the same bytes as reading it
// whole.
func (t *ReaderTest) TestReadConcatAssociativity() {
	t.writeFile("a", "AAAA")
	t.writeFile("b", "BB")
	t.writeFile("c", "CCC")
	desc := t.writeDescription("m-concat-x", "a", "b", "c")

	vf, err := concat.Parse(desc, true)
	require.NoError(t.T(), err)
	defer vf.Close()

	whole := t.readAll(vf, 0, 9)

	for c := 0; c <= 9; c++ {
		first := t.readAll(vf, 0, c)
		second := t.readAll(vf, int64(c), 9-c)
		assert.Equal(t.T(), whole, first+second, "split at c=%d", c)
	}
}

// Two virtual files opened simultaneously, read interleaved from different
// goroutines; each read returns the bytes appropriate to its own handle.
func (t *ReaderTest) TestConcurrentHandlesDoNotInterfere() {
	t.writeFile("a", "AAAA")
	t.writeFile("b", "BB")
	descX := t.writeDescription("x-concat-1", "a", "b")

	t.writeFile("c", "CCC")
	t.writeFile("d", "DDDD")
	descY := t.writeDescription("y-concat-2", "c", "d")

	vfX, err := concat.Parse(descX, true)
	require.NoError(t.T(), err)
	defer vfX.Close()

	vfY, err := concat.Parse(descY, true)
	require.NoError(t.T(), err)
	defer vfY.Close()

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			if got := t.readAll(vfX, 0, int(vfX.Size)); got != "AAAABB" {
				t.T().Errorf("handle X got %q", got)
			}
			return nil
		})
		g.Go(func() error {
			if got := t.readAll(vfY, 0, int(vfY.Size)); got != "CCCDDDD" {
				t.T().Errorf("handle Y got %q", got)
			}
			return nil
		})
	}
	require.NoError(t.T(), g.Wait())
}
