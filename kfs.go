// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import "github.com/fadingred/kfs/internal/model"

// The callback contract an application must implement (spec.md §6). Every
// callback reports failure by returning a non-nil error; internal/nfs3
// maps that error to an NFSv3 status code per-procedure (spec.md §4.D).
// ctx carries cancellation/tracing plumbing only — these are not meant to
// block for long.
type (
	StatFSFunc   = model.StatFSFunc
	StatFunc     = model.StatFunc
	ReadFunc     = model.ReadFunc
	WriteFunc    = model.WriteFunc
	SymlinkFunc  = model.SymlinkFunc
	ReadlinkFunc = model.ReadlinkFunc
	CreateFunc   = model.CreateFunc
	RemoveFunc   = model.RemoveFunc
	RenameFunc   = model.RenameFunc
	TruncateFunc = model.TruncateFunc
	ChmodFunc    = model.ChmodFunc
	UtimesFunc   = model.UtimesFunc
	MkdirFunc    = model.MkdirFunc
	RmdirFunc    = model.RmdirFunc
	ReaddirFunc  = model.ReaddirFunc
)

// FileSystem bundles the callbacks that implement a user-defined
// filesystem and the Options under which it should be mounted.
//
// Any field left nil is replaced at Mount time with a sentinel that fails
// with a "not supported" status, so internal/nfs3 never has to nil-check a
// callback. Entities are immutable after being passed to Mount; only the
// mount table controls their lifetime from that point on.
//
// Currently unsupported filesystem features: no support for users/groups
// on files (uid/gid are fixed to the calling process's), no support for
// creating special file types, no support for hard links.
type FileSystem = model.FileSystem

// Options carries per-mount configuration. Currently the only knob is the
// mountpoint; this mirrors kfsoptions_t in the original C library, which
// held only a mountpoint path too.
type Options = model.Options
