// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"context"

	"github.com/fadingred/kfs/internal/model"
	"github.com/fadingred/kfs/internal/rpctransport"
)

func (e *Engine) handleNull(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	return nil
}

func (e *Engine) handleGetattr(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, getattrWhitelist...)))
		return nil
	}

	st, err := r.fs.Stat(ctx, r.path)
	if err != nil {
		status := whitelist(mapErrno(err, StatusNoEnt), getattrWhitelist...)
		logProcError("getattr", status, err)
		enc.PutUint32(uint32(status))
		return nil
	}

	enc.PutUint32(uint32(StatusOK))
	encodeFattr3(enc, st, r.fsid, r.fileid)
	return nil
}

// handleSetattr implements SETATTR(handle, new_attrs, guard): when guard is
// supplied, the object's ctime must match before any mutation is applied
// (spec.md §4.F).
func (e *Engine) handleSetattr(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, setattrWhitelist...)))
		postOpAttrAbsent(enc) // pre_op_attr
		postOpAttrAbsent(enc) // post_op_attr
		return nil
	}

	attrs, err := decodeSattr3(d)
	if err != nil {
		return err
	}

	guardCheck, err := d.Bool()
	if err != nil {
		return err
	}
	if guardCheck {
		sec, err := d.Uint32()
		if err != nil {
			return err
		}
		nsec, err := d.Uint32()
		if err != nil {
			return err
		}

		cur, err := r.fs.Stat(ctx, r.path)
		if err != nil {
			s := whitelist(mapErrno(err, StatusNoEnt), setattrWhitelist...)
			enc.PutUint32(uint32(s))
			wccDataAbsentPre(enc, false, cur, r.fsid, r.fileid)
			return nil
		}
		if cur.Ctime.Sec != uint64(sec) || cur.Ctime.Nsec != uint64(nsec) {
			enc.PutUint32(uint32(StatusNotSync))
			wccDataAbsentPre(enc, true, cur, r.fsid, r.fileid)
			return nil
		}
	}

	s := applySattr3(ctx, r.fs, r.path, attrs)
	post, statErr := r.fs.Stat(ctx, r.path)
	enc.PutUint32(uint32(s))
	wccDataAbsentPre(enc, statErr == nil, post, r.fsid, r.fileid)
	return nil
}

// handleAccess implements ACCESS(handle, req_mask): always returns OK with
// the computed access mask (spec.md §4.F never fails this procedure on its
// own terms once the handle resolves).
func (e *Engine) handleAccess(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, accessWhitelist...)))
		postOpAttrAbsent(enc)
		return nil
	}

	reqMask, err := d.Uint32()
	if err != nil {
		return err
	}

	st, err := r.fs.Stat(ctx, r.path)
	if err != nil {
		// No mode to compute from: grant nothing.
		enc.PutUint32(uint32(StatusOK))
		postOpAttrAbsent(enc)
		enc.PutUint32(0)
		return nil
	}

	mask := accessMask(st.Mode) & reqMask

	enc.PutUint32(uint32(StatusOK))
	postOpAttrPresent(enc, st, r.fsid, r.fileid)
	enc.PutUint32(mask)
	return nil
}

// NFSv3 ACCESS bits (RFC 1813 §3.3.4).
const (
	access3Read    = 0x0001
	access3Lookup  = 0x0002
	access3Modify  = 0x0004
	access3Extend  = 0x0008
	access3Delete  = 0x0010
	access3Execute = 0x0020
)

// accessMask computes the access bits this process would have against
// mode. Since uid/gid are always the calling process's own (the multi-user
// non-goal), the "first matching class dominates" rule in spec.md §4.F
// always resolves to the user class: os.Getuid() is definitionally the
// owner here.
func accessMask(mode model.Mode) uint32 {
	var mask uint32

	read := mode&model.ModeIRUSR != 0
	write := mode&model.ModeIWUSR != 0
	exec := mode&model.ModeIXUSR != 0

	if read {
		mask |= access3Read
	}
	if write {
		mask |= access3Modify | access3Extend | access3Delete
	}
	if exec {
		mask |= access3Execute | access3Lookup
	}

	return mask
}

func (e *Engine) handleFsstat(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, fsstatWhitelist...)))
		postOpAttrAbsent(enc)
		return nil
	}

	st, err := r.fs.Stat(ctx, r.path)
	fsStat, sErr := r.fs.StatFS(ctx, r.path)
	if sErr != nil {
		s := whitelist(mapErrno(sErr, StatusIO), fsstatWhitelist...)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		return nil
	}

	enc.PutUint32(uint32(StatusOK))
	if err == nil {
		postOpAttrPresent(enc, st, r.fsid, r.fileid)
	} else {
		postOpAttrAbsent(enc)
	}
	enc.PutUint64(fsStat.Size)
	enc.PutUint64(fsStat.Free)
	enc.PutUint64(fsStat.Free)
	enc.PutUint64(0) // tfiles
	enc.PutUint64(0) // ffiles
	enc.PutUint64(0) // afiles
	enc.PutUint32(1) // invarsec
	return nil
}

// FSINFO constant capabilities (spec.md §4.F): identical for every mount,
// which is exactly invariant 5 in spec.md §8.
const (
	fsinfoRtmax       = 64 * 1024
	fsinfoWtmax       = 64 * 1024
	fsinfoDtpref      = 4096
	fsinfoMaxfilesize = 0xFFFFFFFF
	fsinfoTimeDelta   = 1

	fsinfoPropHomogeneous = 0x0008
	fsinfoPropSymlink     = 0x0002
	fsinfoPropCanSetTime  = 0x0010
)

func (e *Engine) handleFsinfo(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, fsinfoWhitelist...)))
		postOpAttrAbsent(enc)
		return nil
	}

	st, err := r.fs.Stat(ctx, r.path)
	enc.PutUint32(uint32(StatusOK))
	if err == nil {
		postOpAttrPresent(enc, st, r.fsid, r.fileid)
	} else {
		postOpAttrAbsent(enc)
	}

	enc.PutUint32(fsinfoRtmax)
	enc.PutUint32(fsinfoRtmax) // rtpref
	enc.PutUint32(4096)        // rtmult
	enc.PutUint32(fsinfoWtmax)
	enc.PutUint32(fsinfoWtmax) // wtpref
	enc.PutUint32(4096)        // wtmult
	enc.PutUint32(fsinfoDtpref)
	enc.PutUint64(fsinfoMaxfilesize)
	enc.PutUint32(fsinfoTimeDelta)
	enc.PutUint32(0)
	enc.PutUint32(fsinfoPropHomogeneous | fsinfoPropSymlink | fsinfoPropCanSetTime)
	return nil
}

func (e *Engine) handlePathconf(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, pathconfWhitelist...)))
		postOpAttrAbsent(enc)
		return nil
	}

	st, err := r.fs.Stat(ctx, r.path)
	enc.PutUint32(uint32(StatusOK))
	if err == nil {
		postOpAttrPresent(enc, st, r.fsid, r.fileid)
	} else {
		postOpAttrAbsent(enc)
	}

	const linkMax = 32767
	const nameMax = 255

	enc.PutUint32(linkMax)
	enc.PutUint32(nameMax)
	enc.PutBool(true)  // no_trunc
	enc.PutBool(false) // chown_restricted
	enc.PutBool(true)  // case_insensitive
	enc.PutBool(true)  // case_preserving
	return nil
}
