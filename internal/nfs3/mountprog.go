// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"github.com/sirupsen/logrus"

	"github.com/fadingred/kfs/internal/rpctransport"
)

// MOUNT program procedure numbers (RFC 1813 Appendix I).
const (
	mountProcNull    = 0
	mountProcMnt     = 1
	mountProcDump    = 2
	mountProcUmnt    = 3
	mountProcUmntAll = 4
	mountProcExport  = 5
)

// mountVersion is the MOUNT program version this stub answers on, matching
// the version NFSv3 clients negotiate for (RFC 1813 Appendix I, version 3).
const mountVersion = 3

// MountProgram answers the ancillary MOUNT protocol every NFSv3 client
// speaks before its first real NFS call. The host kernel's own mount(2)
// syscall is what actually grafts the filesystem into the namespace
// (mount_linux.go), so this program exists only because some NFS clients
// probe MNT before trusting a server. Every call logs an "unexpected
// request" warning. MNT answers with NOTSUPP; NULL, UMNT and UMNTALL answer
// with an empty result and DUMP and EXPORT with an empty list, so none of
// those five returns NOTSUPP.
type MountProgram struct{}

func (MountProgram) Version() uint32 { return mountVersion }

func (MountProgram) Dispatch(proc uint32, args []byte) ([]byte, error) {
	enc := rpctransport.NewEncoder()

	switch proc {
	case mountProcNull:
		logrus.WithField("proc", "null").Warn("kfs: unexpected MOUNT request")
		return enc.Bytes(), nil
	case mountProcMnt:
		logrus.WithField("proc", "mnt").Warn("kfs: unexpected MOUNT request")
		enc.PutUint32(uint32(StatusNotSupp))
		return enc.Bytes(), nil
	case mountProcDump:
		logrus.WithField("proc", "dump").Warn("kfs: unexpected MOUNT request")
		// Empty list (a null pointer terminating the union).
		enc.PutBool(false)
		return enc.Bytes(), nil
	case mountProcUmnt:
		logrus.WithField("proc", "umnt").Warn("kfs: unexpected MOUNT request")
		return enc.Bytes(), nil
	case mountProcUmntAll:
		logrus.WithField("proc", "umntall").Warn("kfs: unexpected MOUNT request")
		return enc.Bytes(), nil
	case mountProcExport:
		logrus.WithField("proc", "export").Warn("kfs: unexpected MOUNT request")
		// Empty list (a null pointer terminating the union).
		enc.PutBool(false)
		return enc.Bytes(), nil
	default:
		return nil, rpctransport.ErrProcUnavail
	}
}
