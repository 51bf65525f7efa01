// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"context"
	"errors"
	"io"

	"github.com/fadingred/kfs/internal/rpctransport"
)

// handleRead implements READ(handle, offset, count): count is clamped to
// readMax (spec.md §4.F) and a short read at EOF is reported via eof=true
// rather than as an error.
func (e *Engine) handleRead(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, readWhitelist...)))
		postOpAttrAbsent(enc)
		return nil
	}

	offset, err := d.Uint64()
	if err != nil {
		return err
	}
	count, err := d.Uint32()
	if err != nil {
		return err
	}
	if count > readMax {
		count = readMax
	}

	buf := make([]byte, count)
	n, readErr := r.fs.Read(ctx, r.path, offset, buf)
	if readErr != nil && n == 0 && !errors.Is(readErr, io.EOF) {
		s := whitelist(mapErrno(readErr, StatusIO), readWhitelist...)
		logProcError("read", s, readErr)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		return nil
	}

	st, statErr := r.fs.Stat(ctx, r.path)

	eof := readErr != nil || (statErr == nil && offset+uint64(n) >= st.Size)

	enc.PutUint32(uint32(StatusOK))
	if statErr == nil {
		postOpAttrPresent(enc, st, r.fsid, r.fileid)
	} else {
		postOpAttrAbsent(enc)
	}
	enc.PutUint32(uint32(n))
	enc.PutBool(eof)
	enc.PutOpaque(buf[:n])
	return nil
}

// handleWrite implements WRITE(handle, offset, count, stable, data): the
// returned committed level is always FILE_SYNC regardless of what the client
// asked for. The engine issues no flush of its own; the data is wherever the
// Write callback left it when it returned.
func (e *Engine) handleWrite(ctx context.Context, d *rpctransport.Decoder, enc *rpctransport.Encoder) error {
	const fileSync = 2

	r, status := e.resolveHandle(d)
	if status != StatusOK {
		enc.PutUint32(uint32(whitelist(status, writeWhitelist...)))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	offset, err := d.Uint64()
	if err != nil {
		return err
	}
	if _, err := d.Uint32(); err != nil { // count (redundant with opaque length)
		return err
	}
	if _, err := d.Uint32(); err != nil { // stable_how, ignored
		return err
	}
	data, err := d.Opaque(writeMax)
	if err != nil {
		return err
	}

	n, writeErr := r.fs.Write(ctx, r.path, offset, data)
	if writeErr != nil {
		s := whitelist(mapErrno(writeErr, StatusIO), writeWhitelist...)
		logProcError("write", s, writeErr)
		enc.PutUint32(uint32(s))
		postOpAttrAbsent(enc)
		postOpAttrAbsent(enc)
		return nil
	}

	st, statErr := r.fs.Stat(ctx, r.path)

	enc.PutUint32(uint32(StatusOK))
	postOpAttrAbsent(enc) // file_wcc.before
	if statErr == nil {
		postOpAttrPresent(enc, st, r.fsid, r.fileid)
	} else {
		postOpAttrAbsent(enc)
	}
	enc.PutUint32(uint32(n))
	enc.PutUint32(fileSync)
	enc.PutUint64(0) // write verifier: this server never restarts mid-mount
	enc.PutUint64(0)
	return nil
}
