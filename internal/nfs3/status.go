// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package nfs3 is the NFSv3 procedure engine (spec.md §4.F): it translates
// decoded NFS arguments into calls against a mounted kfs.FileSystem's
// callbacks, maps results back through the NFSv3 status/attribute wire
// shapes, and enforces the protocol's narrow contracts (handle validity,
// readdir cookie verifier, guarded SETATTR, create modes).
package nfs3

import (
	"errors"
	"io/fs"
	"syscall"
)

// Status is an NFSv3 status code (nfsstat3, RFC 1813 §2.6).
type Status uint32

const (
	StatusOK             Status = 0
	StatusPerm           Status = 1
	StatusNoEnt          Status = 2
	StatusIO             Status = 5
	StatusNXIO           Status = 6
	StatusAcces          Status = 13
	StatusExist          Status = 17
	StatusXDev           Status = 18
	StatusNoDev          Status = 19
	StatusNotDir         Status = 20
	StatusIsDir          Status = 21
	StatusInval          Status = 22
	StatusFBig           Status = 27
	StatusNoSpc          Status = 28
	StatusROFS           Status = 30
	StatusMlink          Status = 31
	StatusNameTooLong    Status = 63
	StatusNotEmpty       Status = 66
	StatusDQuot          Status = 69
	StatusStale          Status = 70
	StatusRemote         Status = 71
	StatusBadHandle      Status = 10001
	StatusNotSync        Status = 10002
	StatusBadCookie      Status = 10003
	StatusNotSupp        Status = 10004
	StatusTooSmall       Status = 10005
	StatusServerFault    Status = 10006
	StatusBadType        Status = 10007
	StatusJukebox        Status = 10008
)

// errnoToStatus maps a host errno to the NFSv3 status it signifies. This is
// the "fixed table of host codes" spec.md §4.D describes; errors.As into
// syscall.Errno handles the wrapped errors the passthrough callbacks return
// from package os.
var errnoToStatus = map[syscall.Errno]Status{
	syscall.EPERM:    StatusPerm,
	syscall.ENOENT:   StatusNoEnt,
	syscall.EIO:      StatusIO,
	syscall.ENXIO:    StatusNXIO,
	syscall.EACCES:   StatusAcces,
	syscall.EEXIST:   StatusExist,
	syscall.EXDEV:    StatusXDev,
	syscall.ENODEV:   StatusNoDev,
	syscall.ENOTDIR:  StatusNotDir,
	syscall.EISDIR:   StatusIsDir,
	syscall.EINVAL:   StatusInval,
	syscall.EFBIG:    StatusFBig,
	syscall.ENOSPC:   StatusNoSpc,
	syscall.EROFS:    StatusROFS,
	syscall.EMLINK:   StatusMlink,
	syscall.ENAMETOOLONG: StatusNameTooLong,
	syscall.ENOTEMPTY:    StatusNotEmpty,
	syscall.EDQUOT:       StatusDQuot,
	syscall.ESTALE:       StatusStale,
}

// mapErrno maps err to a Status using errnoToStatus, falling back to def if
// err doesn't carry a recognized syscall.Errno. A nil err maps to StatusOK
// (callers only invoke this on failure).
func mapErrno(err error, def Status) Status {
	if err == nil {
		return StatusOK
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if s, ok := errnoToStatus[errno]; ok {
			return s
		}
		return def
	}

	if errors.Is(err, fs.ErrNotExist) {
		return StatusNoEnt
	}
	if errors.Is(err, fs.ErrExist) {
		return StatusExist
	}
	if errors.Is(err, fs.ErrPermission) {
		return StatusAcces
	}

	return def
}

// whitelist enforces spec.md §4.D's "each NFSv3 procedure additionally
// defines a status whitelist" rule: any status mapErrno (or the engine's own
// literal status, e.g. StatusBadHandle) produces that isn't in the set for
// this procedure is replaced with StatusServerFault.
func whitelist(s Status, allowed ...Status) Status {
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return StatusServerFault
}

var (
	lookupWhitelist = []Status{StatusOK, StatusIO, StatusNoEnt, StatusAcces, StatusNameTooLong, StatusStale, StatusBadHandle, StatusServerFault}
	getattrWhitelist = []Status{StatusOK, StatusIO, StatusNoEnt, StatusStale, StatusBadHandle, StatusServerFault}
	setattrWhitelist = []Status{StatusOK, StatusIO, StatusNoEnt, StatusAcces, StatusPerm, StatusROFS, StatusNotSupp, StatusNotSync, StatusStale, StatusBadHandle, StatusServerFault}
	readWhitelist    = []Status{StatusOK, StatusIO, StatusNoEnt, StatusAcces, StatusIsDir, StatusInval, StatusStale, StatusBadHandle, StatusServerFault}
	writeWhitelist   = []Status{StatusOK, StatusIO, StatusNoEnt, StatusAcces, StatusFBig, StatusNoSpc, StatusROFS, StatusStale, StatusBadHandle, StatusServerFault}
	createWhitelist  = []Status{StatusOK, StatusIO, StatusAcces, StatusExist, StatusNoSpc, StatusROFS, StatusNameTooLong, StatusNotDir, StatusNotSupp, StatusStale, StatusBadHandle, StatusServerFault}
	removeWhitelist  = []Status{StatusOK, StatusIO, StatusNoEnt, StatusAcces, StatusNotDir, StatusROFS, StatusNameTooLong, StatusStale, StatusBadHandle, StatusServerFault}
	rmdirWhitelist   = []Status{StatusOK, StatusIO, StatusNoEnt, StatusAcces, StatusExist, StatusNotEmpty, StatusNotDir, StatusROFS, StatusNameTooLong, StatusStale, StatusBadHandle, StatusServerFault}
	renameWhitelist  = []Status{StatusOK, StatusIO, StatusNoEnt, StatusAcces, StatusExist, StatusNotEmpty, StatusXDev, StatusNotDir, StatusIsDir, StatusROFS, StatusNameTooLong, StatusStale, StatusBadHandle, StatusServerFault}
	readdirWhitelist = []Status{StatusOK, StatusIO, StatusNoEnt, StatusAcces, StatusNotDir, StatusBadCookie, StatusStale, StatusBadHandle, StatusServerFault}
	accessWhitelist  = []Status{StatusOK, StatusIO, StatusStale, StatusBadHandle, StatusServerFault}
	readlinkWhitelist = []Status{StatusOK, StatusIO, StatusAcces, StatusInval, StatusStale, StatusBadHandle, StatusServerFault}
	symlinkWhitelist = []Status{StatusOK, StatusIO, StatusAcces, StatusExist, StatusNoSpc, StatusROFS, StatusNameTooLong, StatusNotDir, StatusStale, StatusBadHandle, StatusServerFault}
	fsstatWhitelist  = []Status{StatusOK, StatusIO, StatusStale, StatusBadHandle, StatusServerFault}
	fsinfoWhitelist  = []Status{StatusOK, StatusStale, StatusBadHandle, StatusServerFault}
	pathconfWhitelist = []Status{StatusOK, StatusStale, StatusBadHandle, StatusServerFault}
)
