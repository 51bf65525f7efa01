// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package rpctransport implements just enough ONC-RPC (RFC 1057) and XDR
// (RFC 1014) to carry NFSv3 over a loopback TCP socket: record marking,
// call/reply headers, and the handful of primitive XDR types the NFSv3 and
// MOUNT programs need. No third-party XDR/RPC library was evidenced in the
// retrieved corpus with a concrete, reproducible API (see DESIGN.md), so
// this is built directly on encoding/binary.
package rpctransport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrOpaqueTooLong is returned when a variable-length field exceeds the
// caller-supplied maximum, the XDR analog of a decode-time bounds check.
var ErrOpaqueTooLong = errors.New("rpctransport: opaque field exceeds max length")

// Decoder reads successive XDR values from a fixed byte slice.
type Decoder struct {
	buf []byte
	off int
}

func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

func (d *Decoder) take(n int) ([]byte, error) {
	if d.off+n > len(d.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *Decoder) Bool() (bool, error) {
	v, err := d.Uint32()
	return v != 0, err
}

// Opaque decodes a variable-length byte string (length-prefixed, padded to
// a 4-byte boundary), rejecting anything over max.
func (d *Decoder) Opaque(max int) ([]byte, error) {
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if max > 0 && int(n) > max {
		return nil, ErrOpaqueTooLong
	}
	b, err := d.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)

	if pad := (4 - int(n)%4) % 4; pad > 0 {
		if _, err := d.take(pad); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// String decodes a variable-length string the same way as Opaque.
func (d *Decoder) String(max int) (string, error) {
	b, err := d.Opaque(max)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Remaining reports how many bytes are left undecoded.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

// Encoder accumulates XDR-encoded values into a growable buffer.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) PutUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) PutInt32(v int32) {
	e.PutUint32(uint32(v))
}

func (e *Encoder) PutUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) PutBool(v bool) {
	if v {
		e.PutUint32(1)
	} else {
		e.PutUint32(0)
	}
}

// PutOpaque encodes a variable-length byte string: a length prefix followed
// by the bytes, zero-padded to a 4-byte boundary.
func (e *Encoder) PutOpaque(b []byte) {
	e.PutUint32(uint32(len(b)))
	e.buf = append(e.buf, b...)
	if pad := (4 - len(b)%4) % 4; pad > 0 {
		e.buf = append(e.buf, make([]byte, pad)...)
	}
}

func (e *Encoder) PutString(s string) {
	e.PutOpaque([]byte(s))
}

// PutFixedOpaque encodes exactly n bytes of b (truncating or zero-padding),
// with no length prefix — used for fixed-size XDR arrays like a cookie
// verifier.
func (e *Encoder) PutFixedOpaque(b []byte, n int) {
	fixed := make([]byte, n)
	copy(fixed, b)
	e.buf = append(e.buf, fixed...)
}

func (d *Decoder) FixedOpaque(n int) ([]byte, error) {
	b, err := d.take(n)
	if err != nil {
		return nil, fmt.Errorf("rpctransport: fixed opaque(%d): %w", n, err)
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}
