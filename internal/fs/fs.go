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

// Package fs adapts the concatenation engine in internal/concat onto
// fuseutil.FileSystem, the same interface gcsfuse's fs.fileSystem
// implements. It keeps a path-indexed inode table guarded by a single
// InvariantMutex, following gcsfuse's fs.mu discipline, and forwards
// everything that is not a "-concat-" file straight through to the real
// directory tree being exported.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"

	"github.com/schlaile/concatfs/internal/concat"
)

// attributeCacheTTL bounds how long the kernel may cache a passthrough
// inode's entry and attributes before asking again. Virtual inodes are
// never cached at all; see LookUpInode.
const attributeCacheTTL = time.Minute

// Config carries the knobs NewFileSystem needs out of cfg.Config, so the
// package doesn't need to import the whole viper-bound struct shape.
type Config struct {
	SourceDir string

	// Uid and Gid are reported as the owner of every inode.
	Uid uint32
	Gid uint32

	// FileMode and DirMode, when nonzero, override the permission bits
	// reported for regular files and directories. Zero reports the backing
	// file's own bits.
	FileMode os.FileMode
	DirMode  os.FileMode

	Clock timeutil.Clock
}

// inodeRecord is the table entry for a single minted inode. path is
// relative to SourceDir; the root inode's path is "".
//
// GUARDED_BY(fileSystem.mu)
type inodeRecord struct {
	path        string
	lookupCount uint64
}

// fileHandle is the per-open state tracked against a fuseops.HandleID for
// a file inode. Directory opens use dirHandle instead.
type fileHandle struct {
	virtual bool
	key     concat.HandleKey // valid iff virtual
	file    *os.File         // valid iff !virtual
}

// fileSystem implements fuseutil.FileSystem. See the package comment.
type fileSystem struct {
	fuseutil.NotImplementedFileSystem

	clock     timeutil.Clock
	sourceDir string
	uid       uint32
	gid       uint32
	fileMode  os.FileMode
	dirMode   os.FileMode

	registry *concat.Registry

	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	inodes map[fuseops.InodeID]*inodeRecord

	// GUARDED_BY(mu)
	//
	// INVARIANT: for every (path, id) pair, inodes[id].path == path
	paths map[string]fuseops.InodeID

	// GUARDED_BY(mu)
	//
	// INVARIANT: for all keys k, fuseops.RootInodeID < k < nextInodeID, or k == fuseops.RootInodeID
	nextInodeID fuseops.InodeID

	// GUARDED_BY(mu)
	handles map[fuseops.HandleID]interface{}

	// GUARDED_BY(mu)
	nextHandleID fuseops.HandleID
}

// NewFileSystem returns a fuseutil.FileSystem that exports c.SourceDir,
// classifying and serving "-concat-" files through internal/concat instead
// of passing their bytes straight through.
func NewFileSystem(c Config) (fuseutil.FileSystem, error) {
	if c.FileMode&^os.ModePerm != 0 {
		return nil, fmt.Errorf("illegal file mode: %v", c.FileMode)
	}
	if c.DirMode&^os.ModePerm != 0 {
		return nil, fmt.Errorf("illegal dir mode: %v", c.DirMode)
	}

	clock := c.Clock
	if clock == nil {
		clock = timeutil.RealClock()
	}

	fs := &fileSystem{
		clock:        clock,
		sourceDir:    c.SourceDir,
		uid:          c.Uid,
		gid:          c.Gid,
		fileMode:     c.FileMode,
		dirMode:      c.DirMode,
		registry:     concat.NewRegistry(),
		inodes:       make(map[fuseops.InodeID]*inodeRecord),
		paths:        make(map[string]fuseops.InodeID),
		nextInodeID:  fuseops.RootInodeID + 1,
		handles:      make(map[fuseops.HandleID]interface{}),
		nextHandleID: 1,
	}

	fs.inodes[fuseops.RootInodeID] = &inodeRecord{path: "", lookupCount: 1}
	fs.paths[""] = fuseops.RootInodeID

	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)

	return fs, nil
}

// checkInvariants is installed as fs.mu's invariant check.
func (fs *fileSystem) checkInvariants() {
	for id, rec := range fs.inodes {
		if id != fuseops.RootInodeID && id >= fs.nextInodeID {
			panic("fs: inode id out of range of nextInodeID")
		}
		if got := fs.paths[rec.path]; got != id {
			panic("fs: paths index disagrees with inodes table")
		}
	}
	for k := range fs.handles {
		if k >= fs.nextHandleID {
			panic("fs: handle id out of range of nextHandleID")
		}
	}
}

// fullPath returns the real filesystem path backing relPath.
func (fs *fileSystem) fullPath(relPath string) string {
	if relPath == "" {
		return fs.sourceDir
	}
	return filepath.Join(fs.sourceDir, relPath)
}

func childPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + "/" + name
}

// attributesForPath stats relPath on the real filesystem, overriding size
// (and only size) for "-concat-" files with the size the concatenation
// engine computes.
func (fs *fileSystem) attributesForPath(relPath string) (fuseops.InodeAttributes, error) {
	full := fs.fullPath(relPath)

	fi, err := os.Lstat(full)
	if err != nil {
		return fuseops.InodeAttributes{}, err
	}

	attrs := fuseops.InodeAttributes{
		Size:   uint64(fi.Size()),
		Nlink:  1,
		Mode:   fi.Mode(),
		Atime:  fi.ModTime(),
		Mtime:  fi.ModTime(),
		Ctime:  fi.ModTime(),
		Crtime: fi.ModTime(),
		Uid:    fs.uid,
		Gid:    fs.gid,
	}

	// A configured file/dir mode overrides the backing permission bits; zero
	// means report the backing file's own bits.
	switch {
	case fi.Mode().IsDir() && fs.dirMode != 0:
		attrs.Mode = fi.Mode()&^os.ModePerm | fs.dirMode
	case fi.Mode().IsRegular() && fs.fileMode != 0:
		attrs.Mode = fi.Mode()&^os.ModePerm | fs.fileMode
	}

	if fi.Mode().IsRegular() && concat.IsVirtual(full) {
		size, sizeErr := concat.ParseSize(full)
		if sizeErr != nil {
			// An unreadable description presents as an empty virtual file,
			// never as its own raw byte size.
			size = 0
		}
		attrs.Size = uint64(size)
	}

	return attrs, nil
}

// mintInode allocates a fresh inode id for relPath and inserts it into both
// tables with a lookup count of zero; callers bump the count themselves.
//
// EXCLUSIVE_LOCKS_REQUIRED(fs.mu)
func (fs *fileSystem) mintInode(relPath string) fuseops.InodeID {
	id := fs.nextInodeID
	fs.nextInodeID++
	fs.inodes[id] = &inodeRecord{path: relPath}
	fs.paths[relPath] = id
	return id
}

// lookUpOrMint returns the inode id for relPath, minting one if this is the
// first time it has been seen, and increments its lookup count.
//
// EXCLUSIVE_LOCKS_REQUIRED(fs.mu)
func (fs *fileSystem) lookUpOrMint(relPath string) fuseops.InodeID {
	id, ok := fs.paths[relPath]
	if !ok {
		id = fs.mintInode(relPath)
	}
	fs.inodes[id].lookupCount++
	return id
}

func translateStatErr(err error) error {
	if os.IsNotExist(err) {
		return fuse.ENOENT
	}
	return err
}

func (fs *fileSystem) StatFS(
	ctx context.Context,
	op *fuseops.StatFSOp) error {
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) LookUpInode(
	ctx context.Context,
	op *fuseops.LookUpInodeOp) error {
	fs.mu.Lock()
	parentPath := fs.inodes[op.Parent].path
	fs.mu.Unlock()

	relPath := childPath(parentPath, op.Name)

	attrs, err := fs.attributesForPath(relPath)
	if err != nil {
		return translateStatErr(err)
	}

	fs.mu.Lock()
	op.Entry.Child = fs.lookUpOrMint(relPath)
	fs.mu.Unlock()

	op.Entry.Attributes = attrs

	// Let the kernel cache entries and attributes for passthrough inodes.
	// Virtual sizes must be recomputed per call: the description file can
	// change between opens, so a cached size would go stale.
	if !concat.IsVirtual(fs.fullPath(relPath)) {
		expiration := fs.clock.Now().Add(attributeCacheTTL)
		op.Entry.AttributesExpiration = expiration
		op.Entry.EntryExpiration = expiration
	}
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) GetInodeAttributes(
	ctx context.Context,
	op *fuseops.GetInodeAttributesOp) error {
	fs.mu.Lock()
	relPath := fs.inodes[op.Inode].path
	fs.mu.Unlock()

	attrs, err := fs.attributesForPath(relPath)
	if err != nil {
		return translateStatErr(err)
	}

	op.Attributes = attrs
	if !concat.IsVirtual(fs.fullPath(relPath)) {
		op.AttributesExpiration = fs.clock.Now().Add(attributeCacheTTL)
	}
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) SetInodeAttributes(
	ctx context.Context,
	op *fuseops.SetInodeAttributesOp) error {
	fs.mu.Lock()
	relPath := fs.inodes[op.Inode].path
	fs.mu.Unlock()

	full := fs.fullPath(relPath)

	if concat.IsVirtual(full) {
		// Virtual files are read-only, same errno as WriteFile.
		return fuse.EINVAL
	}

	if op.Mode != nil {
		if err := os.Chmod(full, *op.Mode); err != nil {
			return err
		}
	}
	if op.Size != nil {
		if err := os.Truncate(full, int64(*op.Size)); err != nil {
			return err
		}
	}
	if op.Atime != nil || op.Mtime != nil {
		// A zero time.Time leaves the corresponding file time unchanged.
		var atime, mtime time.Time
		if op.Atime != nil {
			atime = *op.Atime
		}
		if op.Mtime != nil {
			mtime = *op.Mtime
		}
		if err := os.Chtimes(full, atime, mtime); err != nil {
			return err
		}
	}

	attrs, err := fs.attributesForPath(relPath)
	if err != nil {
		return translateStatErr(err)
	}
	op.Attributes = attrs
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ForgetInode(
	ctx context.Context,
	op *fuseops.ForgetInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec, ok := fs.inodes[op.Inode]
	if !ok {
		return nil
	}
	if uint64(op.N) >= rec.lookupCount {
		delete(fs.inodes, op.Inode)
		delete(fs.paths, rec.path)
	} else {
		rec.lookupCount -= uint64(op.N)
	}
	return nil
}
