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
	"sync"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
)

// listingCacheTTL bounds how long an open directory handle serves its
// snapshotted listing before relisting on the next rewind to offset zero.
const listingCacheTTL = time.Second

// dirHandle serves ReadDir calls against a snapshot of the directory's
// entries, the same "list once, page through it" approach gcsfuse's own
// dirHandle uses. The snapshot is refreshed when a new listing pass starts
// after the TTL has lapsed, mirroring gcsfuse's contentsExpiration check.
type dirHandle struct {
	relPath string

	mu sync.Mutex

	// GUARDED_BY(mu)
	entries []fuseutil.Dirent

	// GUARDED_BY(mu)
	expiration time.Time
}

func direntType(mode os.FileMode) fuseutil.DirentType {
	switch {
	case mode.IsDir():
		return fuseutil.DT_Directory
	case mode&os.ModeSymlink != 0:
		return fuseutil.DT_Link
	default:
		return fuseutil.DT_File
	}
}

// listLocked snapshots dh's directory, resolving an inode id for each
// child (minting one if this is the first time it's been seen) so the
// dirent stream reports real inode numbers without a second round trip
// through LookUpInode.
//
// EXCLUSIVE_LOCKS_REQUIRED(fs.mu)
// EXCLUSIVE_LOCKS_REQUIRED(dh.mu)
func (fs *fileSystem) listLocked(dh *dirHandle) error {
	osEntries, err := os.ReadDir(fs.fullPath(dh.relPath))
	if err != nil {
		return err
	}

	dh.entries = dh.entries[:0]
	for _, e := range osEntries {
		info, err := e.Info()
		if err != nil {
			// Unlinked between ReadDir and Info; pretend it was never
			// listed.
			continue
		}
		childID := fs.lookUpOrMint(childPath(dh.relPath, e.Name()))
		// Undo the lookup-count bump: a directory listing does not imply a
		// kernel-visible lookup the way LookUpInode does, and ReadDir's
		// consumers already call LookUpInode themselves for any entry they
		// actually use.
		fs.inodes[childID].lookupCount--

		dh.entries = append(dh.entries, fuseutil.Dirent{
			Offset: fuseops.DirOffset(len(dh.entries) + 1),
			Inode:  childID,
			Name:   e.Name(),
			Type:   direntType(info.Mode()),
		})
	}

	dh.expiration = fs.clock.Now().Add(listingCacheTTL)
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) OpenDir(
	ctx context.Context,
	op *fuseops.OpenDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dh := &dirHandle{relPath: fs.inodes[op.Inode].path}
	if err := fs.listLocked(dh); err != nil {
		return translateStatErr(err)
	}

	handleID := fs.nextHandleID
	fs.nextHandleID++
	fs.handles[handleID] = dh
	op.Handle = handleID
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ReadDir(
	ctx context.Context,
	op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	dh := fs.handles[op.Handle].(*dirHandle)

	dh.mu.Lock()
	defer dh.mu.Unlock()

	// A rewind to the start after the TTL has lapsed begins a fresh pass;
	// relist so a long-lived handle sees churn in the directory.
	if op.Offset == 0 && fs.clock.Now().After(dh.expiration) {
		if err := fs.listLocked(dh); err != nil {
			fs.mu.Unlock()
			return translateStatErr(err)
		}
	}
	fs.mu.Unlock()

	index := int(op.Offset)
	for index < len(dh.entries) {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], dh.entries[index])
		if n == 0 {
			break
		}
		op.BytesRead += n
		index++
	}
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ReleaseDirHandle(
	ctx context.Context,
	op *fuseops.ReleaseDirHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.handles, op.Handle)
	return nil
}
