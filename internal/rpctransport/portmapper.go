// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package rpctransport

import (
	"fmt"
	"net"
	"time"
)

// Port mapper program/version/procedure numbers (RFC 1057 appendix A).
const (
	pmapProg = 100000
	pmapVers = 2

	pmapProcSet   = 1
	pmapProcUnset = 2

	pmapProtoTCP = 6
)

// fakeNFSVersion is the bogus NFS version this package registers with the
// port mapper. Some host kernels' native NFS client stalls if the port
// mapper isn't reachable at all; registering any version is enough to keep
// rpcbind/portmap responsive without colliding with a real NFS service
// that may also be running on the machine.
const fakeNFSVersion = 999

// registerWithPortmapper sets the port mapper's mapping for (NFSProgram,
// fakeNFSVersion, tcp) to port, first clearing any stale mapping so the
// SET is idempotent across repeated process restarts.
func registerWithPortmapper(port int) error {
	conn, err := net.DialTimeout("tcp", "127.0.0.1:111", 2*time.Second)
	if err != nil {
		return fmt.Errorf("rpctransport: dialing port mapper: %w", err)
	}
	defer conn.Close()

	if err := pmapCall(conn, pmapProcUnset, NFSProgram, fakeNFSVersion, pmapProtoTCP, 0); err != nil {
		return fmt.Errorf("rpctransport: port mapper unset: %w", err)
	}
	if err := pmapCall(conn, pmapProcSet, NFSProgram, fakeNFSVersion, pmapProtoTCP, uint32(port)); err != nil {
		return fmt.Errorf("rpctransport: port mapper set: %w", err)
	}
	return nil
}

// pmapCall issues one port-mapper procedure call over an already-open TCP
// connection and discards the reply body (both SET and UNSET reply with a
// single boolean this caller doesn't need to act on).
func pmapCall(conn net.Conn, proc uint32, prog, vers, proto, port uint32) error {
	e := NewEncoder()
	e.PutUint32(1) // xid; any value is fine, one request in flight at a time
	e.PutUint32(callType)
	e.PutUint32(2) // rpcvers
	e.PutUint32(pmapProg)
	e.PutUint32(pmapVers)
	e.PutUint32(proc)
	e.PutUint32(authNone) // cred
	e.PutOpaque(nil)
	e.PutUint32(authNone) // verf
	e.PutOpaque(nil)
	e.PutUint32(prog)
	e.PutUint32(vers)
	e.PutUint32(proto)
	e.PutUint32(port)

	if err := writeRecord(conn, e.Bytes()); err != nil {
		return err
	}

	reply, err := readRecord(conn)
	if err != nil {
		return err
	}

	d := NewDecoder(reply)
	if _, err := d.Uint32(); err != nil { // xid
		return err
	}
	msgType, err := d.Uint32()
	if err != nil {
		return err
	}
	if msgType != replyType {
		return fmt.Errorf("rpctransport: port mapper reply: unexpected message type %d", msgType)
	}
	replyStat, err := d.Uint32()
	if err != nil {
		return err
	}
	if replyStat != msgAccepted {
		return fmt.Errorf("rpctransport: port mapper reply: denied")
	}

	// verf: flavor + opaque body
	if _, err := d.Uint32(); err != nil {
		return err
	}
	if _, err := d.Opaque(400); err != nil {
		return err
	}

	acceptStat, err := d.Uint32()
	if err != nil {
		return err
	}
	if acceptStat != acceptSuccess {
		return fmt.Errorf("rpctransport: port mapper reply: accept-stat %d", acceptStat)
	}
	return nil
}
