// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package rpctransport

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxRecordSize bounds a single reassembled RPC record, defending against a
// misbehaving peer sending an unbounded fragment-length claim.
const maxRecordSize = 1 << 20

// readRecord reassembles one RPC record from TCP record-marking framing
// (RFC 1057 §10): each fragment is prefixed by a 4-byte header whose high
// bit marks the last fragment and whose low 31 bits give the fragment
// length.
func readRecord(r io.Reader) ([]byte, error) {
	var out []byte
	for {
		var hdr [4]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, err
		}

		raw := binary.BigEndian.Uint32(hdr[:])
		last := raw&0x80000000 != 0
		length := raw &^ 0x80000000

		if len(out)+int(length) > maxRecordSize {
			return nil, fmt.Errorf("rpctransport: record exceeds %d bytes", maxRecordSize)
		}

		frag := make([]byte, length)
		if _, err := io.ReadFull(r, frag); err != nil {
			return nil, err
		}
		out = append(out, frag...)

		if last {
			return out, nil
		}
	}
}

// writeRecord frames payload as a single, final RPC fragment and writes it
// to w in one call.
func writeRecord(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload))|0x80000000)

	buf := make([]byte, 0, len(hdr)+len(payload))
	buf = append(buf, hdr[:]...)
	buf = append(buf, payload...)

	_, err := w.Write(buf)
	return err
}
