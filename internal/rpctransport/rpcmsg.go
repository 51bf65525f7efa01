// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package rpctransport

import "fmt"

// ONC-RPC message type and reply status constants (RFC 1057 §8).
const (
	callType  = 0
	replyType = 1

	msgAccepted = 0
	msgDenied   = 1

	acceptSuccess      = 0
	acceptProgUnavail  = 1
	acceptProgMismatch = 2
	acceptProcUnavail  = 3
	acceptGarbageArgs  = 4

	authNone = 0
)

// callHeader is the fixed portion of an RPC call message: the xid plus the
// fields that follow the message type.
type callHeader struct {
	xid     uint32
	rpcvers uint32
	prog    uint32
	vers    uint32
	proc    uint32
}

// decodeCall parses an RPC call message, discarding the (always AUTH_NONE
// in this server's case) credential and verifier opaque bodies, and
// returns the header plus the remaining argument bytes.
func decodeCall(d *Decoder) (callHeader, []byte, error) {
	xid, err := d.Uint32()
	if err != nil {
		return callHeader{}, nil, err
	}
	msgType, err := d.Uint32()
	if err != nil {
		return callHeader{}, nil, err
	}
	if msgType != callType {
		return callHeader{}, nil, fmt.Errorf("rpctransport: not a call message (type=%d)", msgType)
	}

	h := callHeader{xid: xid}
	if h.rpcvers, err = d.Uint32(); err != nil {
		return callHeader{}, nil, err
	}
	if h.prog, err = d.Uint32(); err != nil {
		return callHeader{}, nil, err
	}
	if h.vers, err = d.Uint32(); err != nil {
		return callHeader{}, nil, err
	}
	if h.proc, err = d.Uint32(); err != nil {
		return callHeader{}, nil, err
	}

	// cred: flavor + opaque body
	if _, err := d.Uint32(); err != nil {
		return callHeader{}, nil, err
	}
	if _, err := d.Opaque(400); err != nil {
		return callHeader{}, nil, err
	}
	// verf: flavor + opaque body
	if _, err := d.Uint32(); err != nil {
		return callHeader{}, nil, err
	}
	if _, err := d.Opaque(400); err != nil {
		return callHeader{}, nil, err
	}

	return h, d.buf[d.off:], nil
}

// replySuccess encodes a successful accepted-reply envelope (verifier
// AUTH_NONE, accept-stat SUCCESS) followed by body, which the caller has
// already XDR-encoded.
func replySuccess(xid uint32, body []byte) []byte {
	e := NewEncoder()
	e.PutUint32(xid)
	e.PutUint32(replyType)
	e.PutUint32(msgAccepted)
	e.PutUint32(authNone)
	e.PutOpaque(nil)
	e.PutUint32(acceptSuccess)
	e.buf = append(e.buf, body...)
	return e.Bytes()
}

// replyAcceptedError encodes an accepted reply carrying a non-SUCCESS
// accept-stat (PROG_UNAVAIL, PROG_MISMATCH, PROC_UNAVAIL, GARBAGE_ARGS).
// For PROG_MISMATCH low/high version bounds follow the stat.
func replyAcceptedError(xid uint32, stat uint32, low, high uint32) []byte {
	e := NewEncoder()
	e.PutUint32(xid)
	e.PutUint32(replyType)
	e.PutUint32(msgAccepted)
	e.PutUint32(authNone)
	e.PutOpaque(nil)
	e.PutUint32(stat)
	if stat == acceptProgMismatch {
		e.PutUint32(low)
		e.PutUint32(high)
	}
	return e.Bytes()
}
