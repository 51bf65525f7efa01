// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"context"
	"path"

	"github.com/fadingred/kfs/internal/model"
	"github.com/fadingred/kfs/internal/rpctransport"
)

// NFSv3 createmode3 (RFC 1813 §3.3.8).
const (
	createUnchecked = 0
	createGuarded   = 1
	createExclusive = 2
)

// handleCreate implements CREATE(dir, name, how): UNCHECKED and GUARDED both
// decode a sattr3 and apply it after creation, rolling the create back with
// a best-effort remove and reporting the attribute-set status if that
// application fails. EXCLUSIVE decodes and discards its 8-byte verifier and
// always returns NOTSUPP; this server keeps no create-verifier table to
// make EXCLUSIVE's replay semantics meaningful. GUARDED additionally fails
// with EXIST if the name is already present.
func (e *Engine) handleCreate(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, createWhitelist...)))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	name, err := d.String(maxNameLen)
	if err != nil {
		return err
	}

	mode, err := d.Uint32()
	if err != nil {
		return err
	}

	var attrs sattr3
	switch mode {
	case createUnchecked, createGuarded:
		attrs, err = decodeSattr3(d)
		if err != nil {
			return err
		}
	case createExclusive:
		if _, err := d.FixedOpaque(8); err != nil {
			return err
		}
		enc.PutUint32(uint32(StatusNotSupp))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	childP := childPath(r.path, name)

	if mode == createGuarded {
		if _, statErr := r.fs.Stat(ctx, childP); statErr == nil {
			enc.PutUint32(uint32(StatusExist))
			postOpAttrAbsent(enc)
			postOpAttrAbsent(enc)
			postOpAttrAbsent(enc)
			return nil
		}
	}

	if createErr := r.fs.Create(ctx, childP); createErr != nil {
		s := whitelist(mapErrno(createErr, StatusIO), createWhitelist...)
		logProcError("create", s, createErr)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	if attrStatus := applySattr3(ctx, r.fs, childP, attrs); attrStatus != StatusOK {
		_ = r.fs.Remove(ctx, childP)
		enc.PutUint32(uint32(attrStatus))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

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

// handleMkdir implements MKDIR(dir, name, attrs), mirroring CREATE's
// rollback-on-attribute-failure behavior with rmdir in place of remove.
func (e *Engine) handleMkdir(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, createWhitelist...)))
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

	childP := childPath(r.path, name)

	if mkErr := r.fs.Mkdir(ctx, childP); mkErr != nil {
		s := whitelist(mapErrno(mkErr, StatusIO), createWhitelist...)
		logProcError("mkdir", s, mkErr)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	if attrStatus := applySattr3(ctx, r.fs, childP, attrs); attrStatus != StatusOK {
		_ = r.fs.Rmdir(ctx, childP)
		enc.PutUint32(uint32(attrStatus))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

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
	postOpAttrAbsent(enc)
	postOpAttrAbsent(enc)
	return nil
}

func (e *Engine) handleRemove(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, removeWhitelist...)))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	name, err := d.String(maxNameLen)
	if err != nil {
		return err
	}

	childP := childPath(r.path, name)

	if rmErr := r.fs.Remove(ctx, childP); rmErr != nil {
		s := whitelist(mapErrno(rmErr, StatusIO), removeWhitelist...)
		logProcError("remove", s, rmErr)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	enc.PutUint32(uint32(StatusOK))
	postOpAttrAbsent(enc)
	postOpAttrAbsent(enc)
	return nil
}

func (e *Engine) handleRmdir(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, rmdirWhitelist...)))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	name, err := d.String(maxNameLen)
	if err != nil {
		return err
	}

	childP := childPath(r.path, name)

	if rmErr := r.fs.Rmdir(ctx, childP); rmErr != nil {
		s := whitelist(mapErrno(rmErr, StatusIO), rmdirWhitelist...)
		logProcError("rmdir", s, rmErr)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	enc.PutUint32(uint32(StatusOK))
	postOpAttrAbsent(enc)
	postOpAttrAbsent(enc)
	return nil
}

// handleRename implements RENAME(from_dir, from_name, to_dir, to_name).
// Cross-filesystem renames (differing FsID between the two handles) are
// rejected with XDEV before either directory is touched. On success the
// registry's path<->FileID mapping is swapped rather than reassigned, so a
// client holding the old handle across the rename still resolves to the
// same object (spec.md component B's rename-preserves-handle invariant).
func (e *Engine) handleRename(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	from, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, renameWhitelist...)))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}
	fromName, err := d.String(maxNameLen)
	if err != nil {
		return err
	}

	to, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, renameWhitelist...)))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}
	toName, err := d.String(maxNameLen)
	if err != nil {
		return err
	}

	if from.fsid != to.fsid {
		enc.PutUint32(uint32(StatusXDev))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	fromP := childPath(from.path, fromName)
	toP := childPath(to.path, toName)

	if renErr := from.fs.Rename(ctx, fromP, toP); renErr != nil {
		s := whitelist(mapErrno(renErr, StatusIO), renameWhitelist...)
		logProcError("rename", s, renErr)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	fromID := from.reg.FileID(fromP)
	toID := to.reg.FileID(toP)
	_ = from.reg.Swap(fromID, toID)

	enc.PutUint32(uint32(StatusOK))
	postOpAttrAbsent(enc)
	postOpAttrAbsent(enc)
	postOpAttrAbsent(enc)
	postOpAttrAbsent(enc)
	return nil
}

// handleReaddir implements READDIR(dir, cookie, cookieverf, count). The
// cookie verifier is the directory's mtime at the moment of listing: a
// client resuming with a stale verifier (the directory has since been
// modified) gets BAD_COOKIE rather than a silently inconsistent listing,
// per spec.md §4.F.
func (e *Engine) handleReaddir(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, readdirWhitelist...)))
		postOpAttrAbsent(enc)
		return nil
	}

	cookie, err := d.Uint64()
	if err != nil {
		return err
	}
	verf, err := d.FixedOpaque(8)
	if err != nil {
		return err
	}
	if _, err := d.Uint32(); err != nil { // count, this server ignores the byte budget
		return err
	}

	st, statErr := r.fs.Stat(ctx, r.path)
	if statErr != nil {
		s := whitelist(mapErrno(statErr, StatusNoEnt), readdirWhitelist...)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		return nil
	}

	curVerf := mtimeVerifier(st)
	if cookie != 0 && !bytesEqual(verf, curVerf[:]) {
		enc.PutUint32(uint32(StatusBadCookie))
		postOpAttrPresent(enc, st, r.fsid, r.fileid)
		return nil
	}

	contents := model.NewContents()
	if rdErr := r.fs.Readdir(ctx, r.path, contents); rdErr != nil {
		s := whitelist(mapErrno(rdErr, StatusIO), readdirWhitelist...)
		logProcError("readdir", s, rdErr)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		return nil
	}

	enc.PutUint32(uint32(StatusOK))
	postOpAttrPresent(enc, st, r.fsid, r.fileid)
	enc.PutFixedOpaque(curVerf[:], 8)

	start := int(cookie)
	for i := start; i < contents.Count(); i++ {
		name, _ := contents.At(i)
		entryPath := entryPathFor(r.path, name)
		fileid := r.reg.FileID(entryPath)

		enc.PutBool(true) // value_follows
		enc.PutUint64(uint64(fileid))
		enc.PutString(name)
		enc.PutUint64(uint64(i + 1)) // cookie for next call
	}
	enc.PutBool(false) // no more entries
	enc.PutBool(true)  // eof: this server always returns the full listing in one call

	return nil
}

func entryPathFor(dir, name string) string {
	switch name {
	case ".":
		return dir
	case "..":
		if dir == "/" {
			return "/"
		}
		return path.Dir(dir)
	default:
		return childPath(dir, name)
	}
}

func mtimeVerifier(st model.Stat) [8]byte {
	var v [8]byte
	sec := st.Mtime.Sec
	nsec := st.Mtime.Nsec
	for i := 0; i < 4; i++ {
		v[i] = byte(sec >> (8 * i))
		v[4+i] = byte(nsec >> (8 * i))
	}
	return v
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
