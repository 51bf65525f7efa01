// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fadingred/kfs/internal/model"
	"github.com/fadingred/kfs/internal/nfs3"
	"github.com/fadingred/kfs/internal/rpctransport"
)

var gTable = newMountTable()

var registerProgramsOnce sync.Once

// registerPrograms binds the NFSv3 engine and the MOUNT protocol stub to the
// loopback transport's program table. It runs once per process regardless of
// how many filesystems get mounted, since both programs are stateless
// dispatchers that consult gTable on every call rather than closing over a
// particular mount.
func registerPrograms() {
	registerProgramsOnce.Do(func() {
		rpctransport.Register(rpctransport.NFSProgram, nfs3.New(gTable))
		rpctransport.Register(rpctransport.MountProgramNumber, nfs3.MountProgram{})
	})
}

// Mount registers fs's callbacks with the process-wide mount table, brings
// up the loopback NFSv3 transport if this is the first mount in the
// process, and asks the host kernel to NFS-mount it at fs.Options.Mountpoint.
// It blocks until the kernel mount syscall returns.
//
// On success it returns the FsID needed to later call Unmount. The mount
// table will not be able to tell when a filesystem is unmounted out from
// under it (e.g. a manual `umount`); callers should make a best effort to
// call Unmount explicitly to reclaim identifiers and memory.
func Mount(fs FileSystem) (FsID, error) {
	mountpoint := fs.Options.Mountpoint
	if !filepath.IsAbs(mountpoint) {
		return noFsID, ErrMountpointNotAbsolute
	}

	registerPrograms()

	addr, err := rpctransport.EnsureStarted()
	if err != nil {
		return noFsID, fmt.Errorf("kfs: starting transport: %w", err)
	}

	d := &descriptor{
		fs:         fs,
		mountpoint: mountpoint,
		registry:   newFileRegistry(),
	}

	id, err := gTable.put(d)
	if err != nil {
		return noFsID, err
	}

	if err := os.MkdirAll(mountpoint, 0755); err != nil && !os.IsExist(err) {
		gTable.remove(id)
		return noFsID, fmt.Errorf("kfs: creating mountpoint: %w", err)
	}

	readOnly := fs.Write == nil || fs.Create == nil || fs.Remove == nil ||
		fs.Rename == nil || fs.Truncate == nil || fs.Mkdir == nil || fs.Rmdir == nil

	args := mountArgs{
		Mountpoint: mountpoint,
		Port:       addr.Port,
		FsID:       id,
		ReadOnly:   readOnly,
	}

	if err := performMount(args); err != nil {
		gTable.remove(id)
		return noFsID, fmt.Errorf("kfs: mount syscall: %w", err)
	}

	Logger().WithFields(map[string]interface{}{
		"fsid":       int32(id),
		"mountpoint": mountpoint,
		"port":       addr.Port,
		"readOnly":   readOnly,
	}).Info("kfs: mounted")

	return id, nil
}

// Unmount force-unmounts the filesystem previously returned by Mount, frees
// its table slot, and clears its file-id registry. The mountpoint directory
// is removed only when the unmount itself succeeds.
func Unmount(id FsID) error {
	d := gTable.get(id)
	if d == nil {
		return fmt.Errorf("kfs: FsID %d is not mounted", int32(id))
	}

	err := performUnmount(d.mountpoint)

	gTable.remove(id)
	d.registry.clear()

	if err == nil {
		_ = os.Remove(d.mountpoint)
	}

	Logger().WithFields(map[string]interface{}{
		"fsid":       int32(id),
		"mountpoint": d.mountpoint,
	}).Info("kfs: unmounted")

	return err
}

// UnmountAll unmounts every live filesystem in this process. Go offers no
// equivalent of a guaranteed C atexit hook, so unlike the original
// library's automatic process-finalization sweep, callers must invoke this
// explicitly (typically via `defer kfs.UnmountAll()` in main, or a signal
// handler) to get the same guarantee.
func UnmountAll() {
	gTable.iterate(func(id FsID) {
		if err := Unmount(id); err != nil {
			Logger().WithError(err).Warn("kfs: UnmountAll: failed to unmount")
		}
	})
}

// Resolver returns the model.Resolver that internal/nfs3's engine uses to
// resolve a file handle's FsID down to the registered FileSystem and its
// path<->id registry, without internal/nfs3 importing this package.
func Resolver() model.Resolver {
	return gTable
}
