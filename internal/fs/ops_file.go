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
	"io"
	"os"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"

	"github.com/schlaile/concatfs/internal/concat"
)

// OpenFile classifies the inode's backing path and either parses it as a
// concatenation description (opening and registering a VirtualFile) or
// opens the real file for ordinary read/write.
//
// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) OpenFile(
	ctx context.Context,
	op *fuseops.OpenFileOp) error {
	fs.mu.Lock()
	relPath := fs.inodes[op.Inode].path
	fs.mu.Unlock()

	full := fs.fullPath(relPath)

	if concat.IsVirtual(full) {
		vf, err := concat.Parse(full, true)
		op.KeepPageCache = false

		fs.mu.Lock()
		handleID := fs.nextHandleID
		fs.nextHandleID++
		h := &fileHandle{virtual: true, key: concat.HandleKey(handleID)}
		fs.handles[handleID] = h
		fs.mu.Unlock()

		// A description that fails to parse still yields a valid handle;
		// with no registry entry behind it, reads through the handle fail
		// with EINVAL.
		if err == nil {
			fs.registry.Insert(h.key, vf)
		}
		op.Handle = handleID
		return nil
	}

	var h *fileHandle
	f, err := os.OpenFile(full, os.O_RDWR, 0)
	if err != nil {
		f, err = os.OpenFile(full, os.O_RDONLY, 0)
	}
	if err != nil {
		return translateStatErr(err)
	}
	h = &fileHandle{file: f}

	fs.mu.Lock()
	handleID := fs.nextHandleID
	fs.nextHandleID++
	fs.handles[handleID] = h
	fs.mu.Unlock()

	op.Handle = handleID
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ReadFile(
	ctx context.Context,
	op *fuseops.ReadFileOp) error {
	fs.mu.Lock()
	h := fs.handles[op.Handle].(*fileHandle)
	fs.mu.Unlock()

	if h.virtual {
		vf := fs.registry.Find(h.key)
		if vf == nil {
			return fuse.EINVAL
		}
		n, err := vf.ReadAt(op.Dst, op.Offset)
		op.BytesRead = n
		return err
	}

	n, err := h.file.ReadAt(op.Dst, op.Offset)
	op.BytesRead = n
	if err == io.EOF {
		return nil
	}
	return err
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) WriteFile(
	ctx context.Context,
	op *fuseops.WriteFileOp) error {
	fs.mu.Lock()
	h := fs.handles[op.Handle].(*fileHandle)
	fs.mu.Unlock()

	if h.virtual {
		// Virtual files are read-only.
		return fuse.EINVAL
	}

	_, err := h.file.WriteAt(op.Data, op.Offset)
	return err
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) SyncFile(
	ctx context.Context,
	op *fuseops.SyncFileOp) error {
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) FlushFile(
	ctx context.Context,
	op *fuseops.FlushFileOp) error {
	fs.mu.Lock()
	h, ok := fs.handles[op.Handle].(*fileHandle)
	fs.mu.Unlock()

	if !ok || h.virtual || h.file == nil {
		return nil
	}
	return h.file.Sync()
}

// ReleaseFileHandle closes the handle's real file descriptor, or detaches
// and closes its VirtualFile, which in turn closes every backing segment
// descriptor it opened.
//
// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ReleaseFileHandle(
	ctx context.Context,
	op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	h, ok := fs.handles[op.Handle].(*fileHandle)
	delete(fs.handles, op.Handle)
	fs.mu.Unlock()

	if !ok {
		return nil
	}

	if h.virtual {
		if vf := fs.registry.Erase(h.key); vf != nil {
			vf.Close()
		}
		return nil
	}

	return h.file.Close()
}
