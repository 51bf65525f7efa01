// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"context"

	"github.com/fadingred/kfs/internal/model"
	"github.com/fadingred/kfs/internal/rpctransport"
)

const maxNameLen = 255

// handleLookup implements LOOKUP(dir_handle, name): compose the child path,
// obtain its FileID from the registry (allocating one on first sight), and
// return a handle plus its attributes.
func (e *Engine) handleLookup(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, lookupWhitelist...)))
		postOpAttrAbsent(enc) // dir attributes
		return nil
	}

	name, err := d.String(maxNameLen)
	if err != nil {
		return err
	}

	childPath := childPath(r.path, name)

	st, statErr := r.fs.Stat(ctx, childPath)
	if statErr != nil {
		s := whitelist(mapErrno(statErr, StatusNoEnt), lookupWhitelist...)
		logProcError("lookup", s, statErr)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		return nil
	}

	childID := r.reg.FileID(childPath)
	handle := model.FormatHandle(r.fsid, childID)

	enc.PutUint32(uint32(StatusOK))
	enc.PutOpaque([]byte(handle))
	postOpAttrPresent(enc, st, r.fsid, childID) // obj attributes
	postOpAttrAbsent(enc)                       // dir attributes
	return nil
}

func (e *Engine) handleReadlink(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, readlinkWhitelist...)))
		postOpAttrAbsent(enc)
		return nil
	}

	target, err := r.fs.Readlink(ctx, r.path)
	if err != nil {
		s := whitelist(mapErrno(err, StatusInval), readlinkWhitelist...)
		logProcError("readlink", s, err)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		return nil
	}

	enc.PutUint32(uint32(StatusOK))
	postOpAttrAbsent(enc) // symlink_attributes
	enc.PutString(target)
	return nil
}

// handleSymlink implements SYMLINK(dir, name, target, attrs): create the
// link, then best-effort apply attrs without rolling back on failure
// (spec.md §4.F: "a symlink with default attrs is still a usable object").
func (e *Engine) handleSymlink(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, symlinkWhitelist...)))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	name, err := d.String(maxNameLen)
	if err != nil {
		return err
	}

	attrs, err := decodeSattr3(d)
	if err != nil {
		return err
	}

	target, err := d.String(4096)
	if err != nil {
		return err
	}

	childP := childPath(r.path, name)

	createErr := r.fs.Symlink(ctx, childP, target)
	if createErr != nil {
		s := whitelist(mapErrno(createErr, StatusIO), symlinkWhitelist...)
		logProcError("symlink", s, createErr)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	_ = applySattr3(ctx, r.fs, childP, attrs)

	st, statErr := r.fs.Stat(ctx, childP)
	childID := r.reg.FileID(childP)
	handle := model.FormatHandle(r.fsid, childID)

	enc.PutUint32(uint32(StatusOK))
	enc.PutBool(true)
	enc.PutOpaque([]byte(handle))
	if statErr == nil {
		postOpAttrPresent(enc, st, r.fsid, childID)
	} else {
		postOpAttrAbsent(enc)
	}
	postOpAttrAbsent(enc) // dir_wcc.before
	postOpAttrAbsent(enc) // dir_wcc.after
	return nil
}
