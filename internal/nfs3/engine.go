// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"context"
	"fmt"
	"path"

	"github.com/jacobsa/reqtrace"
	"github.com/jacobsa/timeutil"
	"github.com/sirupsen/logrus"

	"github.com/fadingred/kfs/internal/model"
	"github.com/fadingred/kfs/internal/rpctransport"
)

// NFSv3 procedure numbers (RFC 1813 §3.3).
const (
	procNull        = 0
	procGetattr     = 1
	procSetattr     = 2
	procLookup      = 3
	procAccess      = 4
	procReadlink    = 5
	procRead        = 6
	procWrite       = 7
	procCreate      = 8
	procMkdir       = 9
	procSymlink     = 10
	procMknod       = 11
	procRemove      = 12
	procRmdir       = 13
	procRename      = 14
	procLink        = 15
	procReaddir     = 16
	procReaddirplus = 17
	procFsstat      = 18
	procFsinfo      = 19
	procPathconf    = 20
	procCommit      = 21
)

// nfsVersion is the real NFSv3 program version this Engine answers on the
// loopback transport; distinct from rpctransport's fake port-mapper
// registration version, which exists only to placate the host port mapper.
const nfsVersion = 3

const maxHandleLen = 64

// readMax and writeMax bound a single READ/WRITE per spec.md §4.F.
const (
	readMax  = 64 * 1024
	writeMax = 64 * 1024
)

// Engine implements rpctransport.Program for the NFS program, dispatching
// each procedure against whatever filesystem its handle's FsID resolves to
// via resolver (component C, bound to the root kfs package's mount table at
// construction time so this package never imports it).
type Engine struct {
	Resolver model.Resolver
	Clock    timeutil.Clock
}

// New builds an Engine backed by resolver, using the real wall clock.
func New(resolver model.Resolver) *Engine {
	return &Engine{Resolver: resolver, Clock: timeutil.RealClock()}
}

func (e *Engine) Version() uint32 { return nfsVersion }

// Dispatch leaves argument decoding to each per-procedure handler, which
// knows its own argument shape; Dispatch only routes by procedure number and
// wraps the call in a trace span and a debug log line per spec.md §5.F's
// ambient addition.
func (e *Engine) Dispatch(proc uint32, args []byte) (reply []byte, err error) {
	ctx := context.Background()

	name := procName(proc)
	logrus.WithField("proc", name).Debug("kfs: nfs3 request")

	var procErr error
	var report reqtrace.ReportFunc
	ctx, report = reqtrace.StartSpan(ctx, fmt.Sprintf("nfs3.%s", name))
	defer func() { report(procErr) }()

	d := rpctransport.NewDecoder(args)
	enc := rpctransport.NewEncoder()

	switch proc {
	case procNull:
		procErr = e.handleNull(ctx, d, enc)
	case procGetattr:
		procErr = e.handleGetattr(ctx, d, enc)
	case procSetattr:
		procErr = e.handleSetattr(ctx, d, enc)
	case procLookup:
		procErr = e.handleLookup(ctx, d, enc)
	case procAccess:
		procErr = e.handleAccess(ctx, d, enc)
	case procReadlink:
		procErr = e.handleReadlink(ctx, d, enc)
	case procRead:
		procErr = e.handleRead(ctx, d, enc)
	case procWrite:
		procErr = e.handleWrite(ctx, d, enc)
	case procCreate:
		procErr = e.handleCreate(ctx, d, enc)
	case procMkdir:
		procErr = e.handleMkdir(ctx, d, enc)
	case procSymlink:
		procErr = e.handleSymlink(ctx, d, enc)
	case procRemove:
		procErr = e.handleRemove(ctx, d, enc)
	case procRmdir:
		procErr = e.handleRmdir(ctx, d, enc)
	case procRename:
		procErr = e.handleRename(ctx, d, enc)
	case procReaddir:
		procErr = e.handleReaddir(ctx, d, enc)
	case procFsstat:
		procErr = e.handleFsstat(ctx, d, enc)
	case procFsinfo:
		procErr = e.handleFsinfo(ctx, d, enc)
	case procPathconf:
		procErr = e.handlePathconf(ctx, d, enc)
	case procMknod, procLink, procReaddirplus, procCommit:
		enc.PutUint32(uint32(StatusNotSupp))
		postOpAttrAbsent(enc)
	default:
		return nil, rpctransport.ErrProcUnavail
	}

	if procErr != nil {
		return nil, rpctransport.ErrGarbageArgs
	}

	return enc.Bytes(), nil
}

func procName(proc uint32) string {
	names := map[uint32]string{
		procNull: "null", procGetattr: "getattr", procSetattr: "setattr",
		procLookup: "lookup", procAccess: "access", procReadlink: "readlink",
		procRead: "read", procWrite: "write", procCreate: "create",
		procMkdir: "mkdir", procSymlink: "symlink", procMknod: "mknod",
		procRemove: "remove", procRmdir: "rmdir", procRename: "rename",
		procLink: "link", procReaddir: "readdir", procReaddirplus: "readdirplus",
		procFsstat: "fsstat", procFsinfo: "fsinfo", procPathconf: "pathconf",
		procCommit: "commit",
	}
	if n, ok := names[proc]; ok {
		return n
	}
	return fmt.Sprintf("proc%d", proc)
}

// resolved bundles everything a procedure handler needs once a handle has
// decoded and resolved cleanly.
type resolved struct {
	fsid   model.FsID
	fileid model.FileID
	path   string
	fs     model.FileSystem
	reg    model.Registry
}

// resolveHandle reads one nfs_fh3 (a variable opaque of our own
// "fsid:fileid" ASCII form) and resolves it to a live mount, path, and
// callback bundle. Any failure returns StatusBadHandle or StatusStale,
// which every procedure's whitelist permits.
func (e *Engine) resolveHandle(d *rpctransport.Decoder) (resolved, Status) {
	raw, err := d.Opaque(maxHandleLen)
	if err != nil {
		return resolved{}, StatusBadHandle
	}

	fsid, fileid, needsRoot, err := model.ParseHandle(string(raw))
	if err != nil {
		return resolved{}, StatusBadHandle
	}

	fs, reg, ok := e.Resolver.Resolve(fsid)
	if !ok {
		return resolved{}, StatusStale
	}

	p := ""
	if needsRoot {
		fileid = reg.FileID("/")
		p = "/"
	} else {
		var found bool
		p, found = reg.PathFrom(fileid)
		if !found {
			return resolved{}, StatusStale
		}
	}

	return resolved{fsid: fsid, fileid: fileid, path: p, fs: fs, reg: reg}, StatusOK
}

// childPath composes a child path the way LOOKUP/CREATE/MKDIR/SYMLINK/
// RENAME all need: dir path + "/" + name, without a doubled slash when dir
// is the root.
func childPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return path.Join(dir, name)
}

func logProcError(procName string, status Status, err error) {
	fields := logrus.Fields{"proc": procName, "status": status}
	if status == StatusNoEnt || status == StatusExist || status == StatusStale {
		logrus.WithFields(fields).WithError(err).Debug("kfs: nfs3 procedure returned expected failure")
		return
	}
	if status != StatusOK {
		logrus.WithFields(fields).WithError(err).Error("kfs: nfs3 procedure failed")
	}
}
