// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import (
	"fmt"

	"github.com/fadingred/kfs/internal/model"
)

// internalError is one of the two out-of-band errors the library itself can
// raise, as opposed to an errno surfaced by a FileSystem callback. These
// correspond to EKFS_INTR and EKFS_EMFS in the original C library.
type internalError int

const (
	// ErrInterrupted signals an internal error unrelated to any particular
	// callback (EKFS_INTR).
	ErrInterrupted internalError = iota + 1

	// ErrMountTableFull is returned by Mount when the mount table has no
	// free FsId slots left (EKFS_EMFS).
	ErrMountTableFull
)

func (e internalError) Error() string {
	switch e {
	case ErrInterrupted:
		return "kfs: internal error"
	case ErrMountTableFull:
		return "kfs: too many mounted filesystems"
	default:
		return "kfs: unknown internal error"
	}
}

// Additional sentinel errors restored from internal.c/kfslib.c, which guard
// cases the distilled spec.md's §4.H numbered list only describes as "roll
// back and return -1".
var (
	// ErrMountpointNotAbsolute is returned by Mount if Options.Mountpoint is
	// not an absolute path.
	ErrMountpointNotAbsolute = fmt.Errorf("kfs: mountpoint must be an absolute path")

	// ErrMountpointBusy is returned by Mount if the mountpoint path is
	// already in use by another live mount in this process.
	ErrMountpointBusy = fmt.Errorf("kfs: mountpoint already in use")

	// ErrNotSupported is the error a callback left unset at Mount time
	// reports for every call, surfaced here so callers can errors.Is against
	// it from their own callback implementations too.
	ErrNotSupported = model.ErrNotSupported
)

// Perror formats err the way kfs_perror formatted its argument in the
// original C library: s followed by a colon and a human-readable message.
func Perror(s string, err error) string {
	return fmt.Sprintf("%s: %s", s, err.Error())
}
