// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package rpctransport

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// Program numbers assigned by IANA to the NFS and MOUNT protocols.
const (
	NFSProgram         = 100003
	MountProgramNumber = 100005
)

// Program answers RPC calls for one (program, version) pair. Dispatch
// receives the already-demuxed argument bytes for proc and returns the
// XDR-encoded result body to place after the accepted-reply header, or an
// error if proc is not one this program understands (ErrProcUnavail) or
// argument decoding failed (ErrGarbageArgs).
type Program interface {
	Version() uint32
	Dispatch(proc uint32, args []byte) ([]byte, error)
}

// Sentinel errors a Program's Dispatch can return to steer the RPC
// accept-stat the engine replies with, rather than always claiming success
// or a generic system error.
var (
	ErrProcUnavail = fmt.Errorf("rpctransport: procedure unavailable")
	ErrGarbageArgs = fmt.Errorf("rpctransport: malformed arguments")
)

var (
	once       sync.Once
	onceErr    error
	listener   net.Listener
	boundPort  int
	programsMu sync.Mutex
	programs   = map[uint32]Program{}
)

// Register binds prog (a program number) to handler, so the dispatch loop
// routes matching calls to it. Must be called before EnsureStarted, or
// before the first Mount if EnsureStarted is already running — registering
// after start-up is safe since the map is read under programsMu on every
// call, but there will be no live connections yet to race against in this
// server's single-process use.
func Register(prog uint32, handler Program) {
	programsMu.Lock()
	defer programsMu.Unlock()
	programs[prog] = handler
}

// Addr is the loopback address the transport bound to.
type Addr struct {
	Port int
}

// EnsureStarted brings up the loopback RPC service the first time any
// filesystem is mounted (spec.md §4.G): bind a TCP socket to 127.0.0.1:0,
// register the NFS program at a fake version with the port mapper so the
// host's NFS client doesn't stall looking for a live port mapper, then
// spawn the service loop. Subsequent calls are no-ops that return the same
// address.
func EnsureStarted() (Addr, error) {
	once.Do(func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			onceErr = fmt.Errorf("rpctransport: listen: %w", err)
			return
		}
		listener = l
		boundPort = l.Addr().(*net.TCPAddr).Port

		if err := registerWithPortmapper(boundPort); err != nil {
			// Non-fatal: some hosts run without rpcbind at all, and the
			// kernel NFS client only needs it on some platforms. Log and
			// continue serving.
			logrus.WithError(err).Warn("rpctransport: port mapper registration failed, continuing without it")
		}

		logrus.WithField("port", boundPort).Info("rpctransport: loopback NFSv3 service listening")

		go serve(l)
	})

	if onceErr != nil {
		return Addr{}, onceErr
	}
	return Addr{Port: boundPort}, nil
}

func serve(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			logrus.WithError(err).Error("rpctransport: accept failed, service loop exiting")
			return
		}
		go serveConn(conn)
	}
}

// serveConn implements the cooperatively single-threaded request model per
// connection (spec.md §5): one RPC is decoded, dispatched, and replied to
// at a time on this connection before the next record is read. Separate
// connections (the kernel typically opens one) still run concurrently,
// each on its own goroutine, but a given mount's traffic is totally
// ordered the way the spec describes.
func serveConn(conn net.Conn) {
	defer conn.Close()

	for {
		record, err := readRecord(conn)
		if err != nil {
			if err != io.EOF {
				logrus.WithError(err).Debug("rpctransport: connection closed")
			}
			return
		}

		reply, err := handleRecord(record)
		if err != nil {
			logrus.WithError(err).Error("rpctransport: dropping malformed RPC record")
			continue
		}

		if err := writeRecord(conn, reply); err != nil {
			logrus.WithError(err).Error("rpctransport: writing reply")
			return
		}
	}
}

func handleRecord(record []byte) ([]byte, error) {
	d := NewDecoder(record)
	h, args, err := decodeCall(d)
	if err != nil {
		return nil, err
	}

	programsMu.Lock()
	prog, ok := programs[h.prog]
	programsMu.Unlock()

	if !ok {
		return replyAcceptedError(h.xid, acceptProgUnavail, 0, 0), nil
	}
	if prog.Version() != h.vers {
		v := prog.Version()
		return replyAcceptedError(h.xid, acceptProgMismatch, v, v), nil
	}

	body, err := prog.Dispatch(h.proc, args)
	switch {
	case err == nil:
		return replySuccess(h.xid, body), nil
	case err == ErrProcUnavail:
		return replyAcceptedError(h.xid, acceptProcUnavail, 0, 0), nil
	case err == ErrGarbageArgs:
		return replyAcceptedError(h.xid, acceptGarbageArgs, 0, 0), nil
	default:
		logrus.WithError(err).WithField("proc", h.proc).Error("rpctransport: procedure handler failed")
		return replyAcceptedError(h.xid, acceptGarbageArgs, 0, 0), nil
	}
}
