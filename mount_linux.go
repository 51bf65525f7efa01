// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mountArgs carries everything the host mount syscall needs to graft a
// loopback NFSv3 export onto the namespace (spec.md §4.H step 6).
type mountArgs struct {
	Mountpoint string
	Port       int
	FsID       FsID
	ReadOnly   bool
}

// performMount invokes the Linux NFS client against our own loopback
// server. It mirrors the struct nfs_args3 the original C library built by
// hand (original_source/Source/kfslib/mountargs.h); the Linux in-kernel NFS
// client instead takes this as a comma-separated option string, which
// mount(2) hands to the "nfs" filesystem type verbatim.
//
// vers=3 and proto=tcp pin the protocol version and transport; port and
// mountport both point back at our loopback rpctransport listener, since it
// answers both NFS and MOUNT on the same socket (spec.md §4.G); addr and
// clientaddr are loopback-only, matching the package's "no network
// exposure" invariant (spec.md §8 invariant 6).
func performMount(args mountArgs) error {
	access := "rw"
	if args.ReadOnly {
		access = "ro"
	}

	data := fmt.Sprintf(
		"nfsvers=3,%s,proto=tcp,port=%d,mountport=%d,mountproto=tcp,"+
			"addr=127.0.0.1,clientaddr=127.0.0.1,soft,retrans=1,timeo=30,"+
			"noacl,lock",
		access, args.Port, args.Port)

	source := fmt.Sprintf("127.0.0.1:/%d", int32(args.FsID))

	if err := unix.Mount(source, args.Mountpoint, "nfs", 0, data); err != nil {
		return fmt.Errorf("mount(2) %q as nfs: %w", args.Mountpoint, err)
	}
	return nil
}

// performUnmount asks the kernel to tear down the NFS mount. MNT_FORCE
// ensures a mountpoint with no remaining file references still comes down;
// since our server is purely in-process there is no remote state to flush
// first.
func performUnmount(mountpoint string) error {
	if err := unix.Unmount(mountpoint, unix.MNT_FORCE); err != nil {
		return fmt.Errorf("unmount(2) %q: %w", mountpoint, err)
	}
	return nil
}
