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
	"github.com/jacobsa/syncutil"
	"github.com/schlaile/concatfs/internal/metrics"
)

// HandleKey identifies an open virtual file within a Registry. The
// filesystem adapter uses the fuseops.HandleID assigned to the open
// description file as the key, which is unique for the lifetime of that
// open.
type HandleKey uint64

// Registry is a process-wide association from the key of an open
// description file to its virtual file object. All mutation is serialized
// by a single mutex.
//
// INVARIANTS:
//   - each key maps to at most one VirtualFile;
//   - mutation occurs only while mu is held;
//   - a key is present iff the filesystem adapter currently holds a
//     corresponding open virtual file.
type Registry struct {
	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	handles map[HandleKey]*VirtualFile
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	r := &Registry{
		handles: make(map[HandleKey]*VirtualFile),
	}
	r.mu = syncutil.NewInvariantMutex(r.checkInvariants)
	return r
}

// checkInvariants is installed as the InvariantMutex's invariant check; it
// is run (when invariant checking is enabled) every time mu is locked and
// unlocked.
func (r *Registry) checkInvariants() {
	for k, v := range r.handles {
		if v == nil {
			panic("concat: registry holds a nil VirtualFile for key")
		}
		_ = k
	}
}

// Insert registers vf under key. Insert never rejects a duplicate key:
// duplicates cannot arise because handle keys are unique while their
// underlying open is live.
//
// LOCKS_EXCLUDED(r.mu)
func (r *Registry) Insert(key HandleKey, vf *VirtualFile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handles[key] = vf
	metrics.OpenVirtualHandles.Set(float64(len(r.handles)))
}

// Find returns the VirtualFile currently registered under key, or nil if
// none is registered. The returned pointer is a borrow: the kernel
// serializes operations per handle, so a read cannot race an erase on the
// same key.
//
// LOCKS_EXCLUDED(r.mu)
func (r *Registry) Find(key HandleKey) *VirtualFile {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.handles[key]
}

// Erase detaches and returns the VirtualFile registered under key,
// transferring ownership to the caller, or returns nil if none was
// registered.
//
// LOCKS_EXCLUDED(r.mu)
func (r *Registry) Erase(key HandleKey) *VirtualFile {
	r.mu.Lock()
	defer r.mu.Unlock()

	vf, ok := r.handles[key]
	if !ok {
		return nil
	}
	delete(r.handles, key)
	metrics.OpenVirtualHandles.Set(float64(len(r.handles)))
	return vf
}

// Len returns the number of currently registered handles. It exists
// primarily to support the metrics gauge and tests asserting quiescent
// registry state.
//
// LOCKS_EXCLUDED(r.mu)
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.handles)
}
