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
	"strings"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"golang.org/x/sys/unix"
)

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) MkDir(
	ctx context.Context,
	op *fuseops.MkDirOp) error {
	fs.mu.Lock()
	parentPath := fs.inodes[op.Parent].path
	fs.mu.Unlock()

	relPath := childPath(parentPath, op.Name)
	if err := os.Mkdir(fs.fullPath(relPath), op.Mode); err != nil {
		if os.IsExist(err) {
			return fuse.EEXIST
		}
		return err
	}

	attrs, err := fs.attributesForPath(relPath)
	if err != nil {
		return translateStatErr(err)
	}

	fs.mu.Lock()
	op.Entry.Child = fs.lookUpOrMint(relPath)
	fs.mu.Unlock()

	op.Entry.Attributes = attrs
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) CreateFile(
	ctx context.Context,
	op *fuseops.CreateFileOp) error {
	fs.mu.Lock()
	parentPath := fs.inodes[op.Parent].path
	fs.mu.Unlock()

	relPath := childPath(parentPath, op.Name)
	full := fs.fullPath(relPath)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_RDWR, op.Mode)
	if err != nil {
		if os.IsExist(err) {
			return fuse.EEXIST
		}
		return err
	}

	attrs, err := fs.attributesForPath(relPath)
	if err != nil {
		f.Close()
		return translateStatErr(err)
	}

	fs.mu.Lock()
	op.Entry.Child = fs.lookUpOrMint(relPath)
	handleID := fs.nextHandleID
	fs.nextHandleID++
	fs.handles[handleID] = &fileHandle{file: f}
	fs.mu.Unlock()

	op.Entry.Attributes = attrs
	op.Handle = handleID
	return nil
}

// mknodMode translates an os.FileMode into the type-and-permission bits
// mknod(2) expects.
func mknodMode(m os.FileMode) uint32 {
	bits := uint32(m.Perm())
	switch {
	case m&os.ModeCharDevice != 0:
		bits |= unix.S_IFCHR
	case m&os.ModeDevice != 0:
		bits |= unix.S_IFBLK
	case m&os.ModeNamedPipe != 0:
		bits |= unix.S_IFIFO
	case m&os.ModeSocket != 0:
		bits |= unix.S_IFSOCK
	default:
		bits |= unix.S_IFREG
	}
	return bits
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) MkNode(
	ctx context.Context,
	op *fuseops.MkNodeOp) error {
	fs.mu.Lock()
	parentPath := fs.inodes[op.Parent].path
	fs.mu.Unlock()

	relPath := childPath(parentPath, op.Name)
	if err := unix.Mknod(fs.fullPath(relPath), mknodMode(op.Mode), int(op.Rdev)); err != nil {
		if err == unix.EEXIST {
			return fuse.EEXIST
		}
		return err
	}

	attrs, err := fs.attributesForPath(relPath)
	if err != nil {
		return translateStatErr(err)
	}

	fs.mu.Lock()
	op.Entry.Child = fs.lookUpOrMint(relPath)
	fs.mu.Unlock()

	op.Entry.Attributes = attrs
	return nil
}

// CreateLink hard-links the target inode's backing path under the new
// name. The new path is minted as its own inode entry; both table entries
// resolve to the same underlying file.
//
// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) CreateLink(
	ctx context.Context,
	op *fuseops.CreateLinkOp) error {
	fs.mu.Lock()
	parentPath := fs.inodes[op.Parent].path
	targetPath := fs.inodes[op.Target].path
	fs.mu.Unlock()

	relPath := childPath(parentPath, op.Name)
	if err := os.Link(fs.fullPath(targetPath), fs.fullPath(relPath)); err != nil {
		if os.IsExist(err) {
			return fuse.EEXIST
		}
		return err
	}

	attrs, err := fs.attributesForPath(relPath)
	if err != nil {
		return translateStatErr(err)
	}

	fs.mu.Lock()
	op.Entry.Child = fs.lookUpOrMint(relPath)
	fs.mu.Unlock()

	op.Entry.Attributes = attrs
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) CreateSymlink(
	ctx context.Context,
	op *fuseops.CreateSymlinkOp) error {
	fs.mu.Lock()
	parentPath := fs.inodes[op.Parent].path
	fs.mu.Unlock()

	relPath := childPath(parentPath, op.Name)
	if err := os.Symlink(op.Target, fs.fullPath(relPath)); err != nil {
		if os.IsExist(err) {
			return fuse.EEXIST
		}
		return err
	}

	attrs, err := fs.attributesForPath(relPath)
	if err != nil {
		return translateStatErr(err)
	}

	fs.mu.Lock()
	op.Entry.Child = fs.lookUpOrMint(relPath)
	fs.mu.Unlock()

	op.Entry.Attributes = attrs
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ReadSymlink(
	ctx context.Context,
	op *fuseops.ReadSymlinkOp) error {
	fs.mu.Lock()
	relPath := fs.inodes[op.Inode].path
	fs.mu.Unlock()

	target, err := os.Readlink(fs.fullPath(relPath))
	if err != nil {
		return translateStatErr(err)
	}
	op.Target = target
	return nil
}

// Rename forwards to os.Rename and re-keys every inode whose path falls
// under the renamed prefix, keeping the path-indexed tables consistent.
//
// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) Rename(
	ctx context.Context,
	op *fuseops.RenameOp) error {
	fs.mu.Lock()
	oldParentPath := fs.inodes[op.OldParent].path
	newParentPath := fs.inodes[op.NewParent].path
	fs.mu.Unlock()

	oldPath := childPath(oldParentPath, op.OldName)
	newPath := childPath(newParentPath, op.NewName)

	if err := os.Rename(fs.fullPath(oldPath), fs.fullPath(newPath)); err != nil {
		return translateStatErr(err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.renamePathsLocked(oldPath, newPath)
	return nil
}

// renamePathsLocked re-keys every inode whose path is oldPath or lies under
// it (oldPath + "/...") to the corresponding path under newPath.
//
// EXCLUSIVE_LOCKS_REQUIRED(fs.mu)
func (fs *fileSystem) renamePathsLocked(oldPath, newPath string) {
	prefix := oldPath + "/"
	for path, id := range fs.paths {
		var rewritten string
		switch {
		case path == oldPath:
			rewritten = newPath
		case strings.HasPrefix(path, prefix):
			rewritten = newPath + "/" + path[len(prefix):]
		default:
			continue
		}
		delete(fs.paths, path)
		fs.paths[rewritten] = id
		fs.inodes[id].path = rewritten
	}
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) RmDir(
	ctx context.Context,
	op *fuseops.RmDirOp) error {
	fs.mu.Lock()
	parentPath := fs.inodes[op.Parent].path
	fs.mu.Unlock()

	relPath := childPath(parentPath, op.Name)
	if err := os.Remove(fs.fullPath(relPath)); err != nil {
		return translateStatErr(err)
	}
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) Unlink(
	ctx context.Context,
	op *fuseops.UnlinkOp) error {
	fs.mu.Lock()
	parentPath := fs.inodes[op.Parent].path
	fs.mu.Unlock()

	relPath := childPath(parentPath, op.Name)
	if err := os.Remove(fs.fullPath(relPath)); err != nil {
		return translateStatErr(err)
	}
	return nil
}
