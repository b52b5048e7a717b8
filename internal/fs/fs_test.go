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

package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/schlaile/concatfs/internal/concat"
)

type FileSystemTest struct {
	suite.Suite
	dir string
	fs  *fileSystem
}

func TestFileSystemSuite(t *testing.T) {
	suite.Run(t, new(FileSystemTest))
}

func (t *FileSystemTest) SetupTest() {
	t.dir = t.T().TempDir()

	impl, err := NewFileSystem(Config{
		SourceDir: t.dir,
		Uid:       1000,
		Gid:       1000,
		FileMode:  0o644,
		DirMode:   0o755,
	})
	require.NoError(t.T(), err)
	t.fs = impl.(*fileSystem)
}

func (t *FileSystemTest) writeFile(relPath, contents string) {
	require.NoError(t.T(), os.WriteFile(filepath.Join(t.dir, relPath), []byte(contents), 0o644))
}

func (t *FileSystemTest) lookUp(name string) fuseops.InodeID {
	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: name}
	require.NoError(t.T(), t.fs.LookUpInode(context.Background(), op))
	return op.Entry.Child
}

func (t *FileSystemTest) TestLookUpOrdinaryFileReportsRealSize() {
	t.writeFile("plain.txt", "hello")

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "plain.txt"}
	err := t.fs.LookUpInode(context.Background(), op)

	require.NoError(t.T(), err)
	assert.EqualValues(t.T(), 5, op.Entry.Attributes.Size)
	assert.EqualValues(t.T(), 1000, op.Entry.Attributes.Uid)
}

func (t *FileSystemTest) TestLookUpVirtualFileReportsConcatenatedSize() {
	t.writeFile("part.txt", "0123456789")
	t.writeFile("file-concat-desc", "part.txt:2:5\n")

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "file-concat-desc"}
	err := t.fs.LookUpInode(context.Background(), op)

	require.NoError(t.T(), err)
	assert.EqualValues(t.T(), 5, op.Entry.Attributes.Size)
}

func (t *FileSystemTest) TestOpenAndReadVirtualFile() {
	t.writeFile("part.txt", "0123456789")
	t.writeFile("file-concat-desc", "part.txt:2:5\n")

	inode := t.lookUp("file-concat-desc")

	openOp := &fuseops.OpenFileOp{Inode: inode}
	require.NoError(t.T(), t.fs.OpenFile(context.Background(), openOp))
	assert.Equal(t.T(), 1, t.fs.registry.Len())

	readOp := &fuseops.ReadFileOp{
		Inode:  inode,
		Handle: openOp.Handle,
		Offset: 0,
		Dst:    make([]byte, 5),
	}
	require.NoError(t.T(), t.fs.ReadFile(context.Background(), readOp))
	assert.Equal(t.T(), 5, readOp.BytesRead)
	assert.Equal(t.T(), "23456", string(readOp.Dst[:readOp.BytesRead]))

	release := &fuseops.ReleaseFileHandleOp{Handle: openOp.Handle}
	require.NoError(t.T(), t.fs.ReleaseFileHandle(context.Background(), release))
	assert.Equal(t.T(), 0, t.fs.registry.Len())
}

func (t *FileSystemTest) TestReadAfterReleaseOnVirtualHandleFailsInvalidArgument() {
	t.writeFile("part.txt", "0123456789")
	t.writeFile("file-concat-desc", "part.txt:2:5\n")

	inode := t.lookUp("file-concat-desc")

	openOp := &fuseops.OpenFileOp{Inode: inode}
	require.NoError(t.T(), t.fs.OpenFile(context.Background(), openOp))

	release := &fuseops.ReleaseFileHandleOp{Handle: openOp.Handle}
	require.NoError(t.T(), t.fs.ReleaseFileHandle(context.Background(), release))

	t.fs.mu.Lock()
	t.fs.handles[openOp.Handle] = &fileHandle{virtual: true, key: concat.HandleKey(openOp.Handle)}
	t.fs.mu.Unlock()

	readOp := &fuseops.ReadFileOp{
		Inode:  inode,
		Handle: openOp.Handle,
		Offset: 0,
		Dst:    make([]byte, 5),
	}
	assert.Equal(t.T(), fuse.EINVAL, t.fs.ReadFile(context.Background(), readOp))
}

func (t *FileSystemTest) TestWriteToVirtualFileIsRejected() {
	t.writeFile("part.txt", "0123456789")
	t.writeFile("file-concat-desc", "part.txt\n")

	inode := t.lookUp("file-concat-desc")

	openOp := &fuseops.OpenFileOp{Inode: inode}
	require.NoError(t.T(), t.fs.OpenFile(context.Background(), openOp))

	writeOp := &fuseops.WriteFileOp{Inode: inode, Handle: openOp.Handle, Data: []byte("x")}
	err := t.fs.WriteFile(context.Background(), writeOp)
	assert.Equal(t.T(), fuse.EINVAL, err)
}

func (t *FileSystemTest) TestMkDirThenLookUpRoundTrips() {
	mkdirOp := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "sub", Mode: 0o755 | os.ModeDir}
	require.NoError(t.T(), t.fs.MkDir(context.Background(), mkdirOp))
	assert.True(t.T(), mkdirOp.Entry.Attributes.Mode.IsDir())

	lookUpOp := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "sub"}
	require.NoError(t.T(), t.fs.LookUpInode(context.Background(), lookUpOp))
	assert.Equal(t.T(), mkdirOp.Entry.Child, lookUpOp.Entry.Child)
}

func (t *FileSystemTest) TestRenameUpdatesInodeTable() {
	t.writeFile("old.txt", "data")
	inode := t.lookUp("old.txt")

	renameOp := &fuseops.RenameOp{
		OldParent: fuseops.RootInodeID,
		OldName:   "old.txt",
		NewParent: fuseops.RootInodeID,
		NewName:   "new.txt",
	}
	require.NoError(t.T(), t.fs.Rename(context.Background(), renameOp))

	t.fs.mu.Lock()
	path := t.fs.inodes[inode].path
	t.fs.mu.Unlock()
	assert.Equal(t.T(), "new.txt", path)
}

func (t *FileSystemTest) TestReadDirListsWrittenFiles() {
	t.writeFile("a.txt", "a")
	t.writeFile("b.txt", "b")

	openOp := &fuseops.OpenDirOp{Inode: fuseops.RootInodeID}
	require.NoError(t.T(), t.fs.OpenDir(context.Background(), openOp))

	readOp := &fuseops.ReadDirOp{
		Inode:  fuseops.RootInodeID,
		Handle: openOp.Handle,
		Offset: 0,
		Dst:    make([]byte, 4096),
	}
	require.NoError(t.T(), t.fs.ReadDir(context.Background(), readOp))
	assert.Greater(t.T(), readOp.BytesRead, 0)
}

func (t *FileSystemTest) TestWriteToOrdinaryFilePersists() {
	t.writeFile("plain.txt", "xxxxx")
	inode := t.lookUp("plain.txt")

	openOp := &fuseops.OpenFileOp{Inode: inode}
	require.NoError(t.T(), t.fs.OpenFile(context.Background(), openOp))

	writeOp := &fuseops.WriteFileOp{Inode: inode, Handle: openOp.Handle, Data: []byte("hello")}
	require.NoError(t.T(), t.fs.WriteFile(context.Background(), writeOp))

	release := &fuseops.ReleaseFileHandleOp{Handle: openOp.Handle}
	require.NoError(t.T(), t.fs.ReleaseFileHandle(context.Background(), release))

	data, err := os.ReadFile(filepath.Join(t.dir, "plain.txt"))
	require.NoError(t.T(), err)
	assert.Equal(t.T(), "hello", string(data))
}

func (t *FileSystemTest) TestSetAttributesOnVirtualFileRejected() {
	t.writeFile("part.txt", "0123456789")
	t.writeFile("file-concat-desc", "part.txt\n")

	inode := t.lookUp("file-concat-desc")

	var size uint64 = 3
	op := &fuseops.SetInodeAttributesOp{Inode: inode, Size: &size}
	assert.Equal(t.T(), fuse.EINVAL, t.fs.SetInodeAttributes(context.Background(), op))
}

func (t *FileSystemTest) TestOpenVirtualFileWithUnparseableDescription() {
	// A dangling symlink stats via Lstat but cannot be opened, so the
	// description parse fails while the open itself must still succeed.
	require.NoError(t.T(), os.Symlink("missing-target", filepath.Join(t.dir, "broken-concat-desc")))
	inode := t.lookUp("broken-concat-desc")

	openOp := &fuseops.OpenFileOp{Inode: inode}
	require.NoError(t.T(), t.fs.OpenFile(context.Background(), openOp))
	assert.Equal(t.T(), 0, t.fs.registry.Len())

	readOp := &fuseops.ReadFileOp{
		Inode:  inode,
		Handle: openOp.Handle,
		Offset: 0,
		Dst:    make([]byte, 4),
	}
	assert.Equal(t.T(), fuse.EINVAL, t.fs.ReadFile(context.Background(), readOp))

	release := &fuseops.ReleaseFileHandleOp{Handle: openOp.Handle}
	require.NoError(t.T(), t.fs.ReleaseFileHandle(context.Background(), release))
}

func (t *FileSystemTest) TestUnreadableDescriptionReportsZeroSize() {
	if os.Getuid() == 0 {
		t.T().Skip("permission bits do not bind root")
	}

	t.writeFile("file-concat-desc", "part.txt:2:5\n")
	require.NoError(t.T(), os.Chmod(filepath.Join(t.dir, "file-concat-desc"), 0o000))

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "file-concat-desc"}
	require.NoError(t.T(), t.fs.LookUpInode(context.Background(), op))
	assert.EqualValues(t.T(), 0, op.Entry.Attributes.Size)
}

func (t *FileSystemTest) TestMkNodeCreatesFifo() {
	op := &fuseops.MkNodeOp{
		Parent: fuseops.RootInodeID,
		Name:   "pipe",
		Mode:   os.ModeNamedPipe | 0o644,
	}
	require.NoError(t.T(), t.fs.MkNode(context.Background(), op))

	fi, err := os.Lstat(filepath.Join(t.dir, "pipe"))
	require.NoError(t.T(), err)
	assert.NotZero(t.T(), fi.Mode()&os.ModeNamedPipe)
	assert.NotZero(t.T(), op.Entry.Attributes.Mode&os.ModeNamedPipe)
}

func (t *FileSystemTest) TestCreateLinkSharesBackingFile() {
	t.writeFile("orig.txt", "data")
	target := t.lookUp("orig.txt")

	op := &fuseops.CreateLinkOp{
		Parent: fuseops.RootInodeID,
		Name:   "link.txt",
		Target: target,
	}
	require.NoError(t.T(), t.fs.CreateLink(context.Background(), op))

	data, err := os.ReadFile(filepath.Join(t.dir, "link.txt"))
	require.NoError(t.T(), err)
	assert.Equal(t.T(), "data", string(data))

	fi, err := os.Stat(filepath.Join(t.dir, "link.txt"))
	require.NoError(t.T(), err)
	assert.EqualValues(t.T(), 4, fi.Size())
}
