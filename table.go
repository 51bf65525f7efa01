// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import (
	"fmt"

	"github.com/fadingred/kfs/internal/model"
	"github.com/jacobsa/syncutil"
)

// FsID identifies a mounted filesystem within this process, in [0, maxFS).
// -1 signals "none".
type FsID = model.FsID

const noFsID FsID = -1

// maxFS bounds the mount table's capacity, matching the original library's
// compiled-in limit.
const maxFS = 1024

// descriptor is the process-internal record the mount table holds for each
// live mount: the callback bundle (with every unset slot replaced by a
// failing sentinel at insertion time), the owned mountpoint path, and the
// per-mount file-id registry.
type descriptor struct {
	fs         FileSystem
	mountpoint string
	registry   *fileRegistry
}

// mountTable is the process-wide table of live mounts (spec.md §3, §4.C).
// Like fileRegistry, it is guarded by an InvariantMutex so that the
// bookkeeping invariant spec.md §8 #3 promises ("the mount table never
// returns the same FsId to two live descriptors") is checked on every
// access in debug builds.
type mountTable struct {
	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	slots [maxFS]*descriptor
	// GUARDED_BY(mu)
	cursor int
	// GUARDED_BY(mu)
	mountpoints map[string]bool
}

func newMountTable() *mountTable {
	t := &mountTable{
		mountpoints: make(map[string]bool),
	}
	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

func (t *mountTable) checkInvariants() {
	live := 0
	for _, d := range t.slots {
		if d != nil {
			live++
			if !t.mountpoints[d.mountpoint] {
				panic(fmt.Sprintf(
					"mountTable: slot for %q missing from mountpoints set", d.mountpoint))
			}
		}
	}
	if live != len(t.mountpoints) {
		panic(fmt.Sprintf(
			"mountTable: %d live slots but %d tracked mountpoints", live, len(t.mountpoints)))
	}
	if t.cursor < 0 || t.cursor >= maxFS {
		panic(fmt.Sprintf("mountTable: cursor %d out of range", t.cursor))
	}
}

// put allocates the next free slot by linear probe starting from a
// rotating cursor and stores d there, returning its FsID. It returns
// noFsID and ErrMountTableFull if a full sweep finds no empty slot.
func (t *mountTable) put(d *descriptor) (FsID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mountpoints[d.mountpoint] {
		return noFsID, ErrMountpointBusy
	}

	d.fs = d.fs.WithDefaults()

	for i := 0; i < maxFS; i++ {
		idx := (t.cursor + i) % maxFS
		if t.slots[idx] == nil {
			t.slots[idx] = d
			t.mountpoints[d.mountpoint] = true
			t.cursor = (idx + 1) % maxFS
			return FsID(idx), nil
		}
	}

	return noFsID, ErrMountTableFull
}

// get returns the descriptor for id, or nil if there is none.
func (t *mountTable) get(id FsID) *descriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id < 0 || int(id) >= maxFS {
		return nil
	}
	return t.slots[id]
}

// remove frees the slot for id, if any, and returns the descriptor that was
// there.
func (t *mountTable) remove(id FsID) *descriptor {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id < 0 || int(id) >= maxFS {
		return nil
	}

	d := t.slots[id]
	if d == nil {
		return nil
	}

	t.slots[id] = nil
	delete(t.mountpoints, d.mountpoint)
	return d
}

// Resolve looks up the FileSystem and Registry for a live FsID. It
// implements model.Resolver, which is how internal/nfs3's engine reaches
// back into this table without the two packages importing one another.
func (t *mountTable) Resolve(id FsID) (model.FileSystem, model.Registry, bool) {
	d := t.get(id)
	if d == nil {
		return model.FileSystem{}, nil, false
	}
	return d.fs, d.registry, true
}

// iterate calls f for every live FsID currently in the table, in slot
// order. UnmountAll uses it to unmount everything, the Go analog of the
// original iterate(&cursor) cursor-based sweep.
func (t *mountTable) iterate(f func(FsID)) {
	t.mu.RLock()
	ids := make([]FsID, 0, len(t.mountpoints))
	for idx, d := range t.slots {
		if d != nil {
			ids = append(ids, FsID(idx))
		}
	}
	t.mu.RUnlock()

	for _, id := range ids {
		f(id)
	}
}
