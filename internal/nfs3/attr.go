// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"context"
	"os"

	"github.com/fadingred/kfs/internal/model"
	"github.com/fadingred/kfs/internal/rpctransport"
)

// NFSv3 file type enumeration (ftype3, RFC 1813 §2.5).
const (
	ftypeReg  = 1
	ftypeDir  = 2
	ftypeBlk  = 3
	ftypeChr  = 4
	ftypeLnk  = 5
	ftypeSock = 6
	ftypeFifo = 7
)

var typeToFtype = map[model.FileType]uint32{
	model.TypeReg:  ftypeReg,
	model.TypeDir:  ftypeDir,
	model.TypeBlk:  ftypeBlk,
	model.TypeChr:  ftypeChr,
	model.TypeLnk:  ftypeLnk,
	model.TypeSock: ftypeSock,
	model.TypeFifo: ftypeFifo,
}

// modeBitsToNFS and nfsBitsToMode translate between KFS's own 9-bit
// permission encoding and the POSIX bit positions NFSv3's fattr3.mode field
// uses (S_IRUSR == 0400 etc, matching struct stat).
var modeBitsToNFS = []struct {
	kfs model.Mode
	nfs uint32
}{
	{model.ModeIRUSR, 0400},
	{model.ModeIWUSR, 0200},
	{model.ModeIXUSR, 0100},
	{model.ModeIRGRP, 0040},
	{model.ModeIWGRP, 0020},
	{model.ModeIXGRP, 0010},
	{model.ModeIROTH, 0004},
	{model.ModeIWOTH, 0002},
	{model.ModeIXOTH, 0001},
}

func kfsModeToNFS(m model.Mode) uint32 {
	var out uint32
	for _, b := range modeBitsToNFS {
		if m&b.kfs != 0 {
			out |= b.nfs
		}
	}
	return out
}

func nfsModeToKFS(m uint32) model.Mode {
	var out model.Mode
	for _, b := range modeBitsToNFS {
		if m&b.nfs != 0 {
			out |= b.kfs
		}
	}
	return out
}

// encodeFattr3 writes an fattr3 built from st, with nlink fixed at 1,
// uid/gid set to the calling process's, rdev zeroed, the NFS-protocol fsid
// written as 0, and fileid as given — matching spec.md §4.E's mapping.
func encodeFattr3(e *rpctransport.Encoder, st model.Stat, fsid model.FsID, fileid model.FileID) {
	ftype, ok := typeToFtype[st.Type]
	if !ok {
		ftype = ftypeReg
	}

	e.PutUint32(ftype)
	e.PutUint32(kfsModeToNFS(st.Mode))
	e.PutUint32(1) // nlink
	e.PutUint32(uint32(os.Getuid()))
	e.PutUint32(uint32(os.Getgid()))
	e.PutUint64(st.Size)
	e.PutUint64(st.Used)
	e.PutUint32(0) // rdev.specdata1
	e.PutUint32(0) // rdev.specdata2
	e.PutUint64(0) // fsid (NFS-protocol fsid, distinct from kfs.FsID)
	e.PutUint64(uint64(fileid))
	e.PutUint32(uint32(st.Atime.Sec))
	e.PutUint32(uint32(st.Atime.Nsec))
	e.PutUint32(uint32(st.Mtime.Sec))
	e.PutUint32(uint32(st.Mtime.Nsec))
	e.PutUint32(uint32(st.Ctime.Sec))
	e.PutUint32(uint32(st.Ctime.Nsec))
}

// postOpAttrPresent writes a post_op_attr: attributes_follow=true followed by
// fattr3, used whenever a procedure has a live Stat to report.
func postOpAttrPresent(e *rpctransport.Encoder, st model.Stat, fsid model.FsID, fileid model.FileID) {
	e.PutBool(true)
	encodeFattr3(e, st, fsid, fileid)
}

// postOpAttrAbsent writes attributes_follow=false, used on failure paths
// and for the pre-op side of every wcc3 this engine emits (spec.md §4.F:
// "Pre-op attributes are intentionally not filled").
func postOpAttrAbsent(e *rpctransport.Encoder) {
	e.PutBool(false)
}

// wccDataAbsentPre writes a wcc_data: a pre_op_attr (always absent, per spec.md
// §4.F's open question) followed by a post_op_attr.
func wccDataAbsentPre(e *rpctransport.Encoder, postOK bool, st model.Stat, fsid model.FsID, fileid model.FileID) {
	postOpAttrAbsent(e) // pre_op_attr
	if postOK {
		postOpAttrPresent(e, st, fsid, fileid)
	} else {
		postOpAttrAbsent(e)
	}
}

// sattr3 is the decoded form of NFSv3's guarded attribute-set struct:
// each field's set_it flag determines whether the pointer is non-nil.
type sattr3 struct {
	Mode  *model.Mode
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime *model.Time
	AtimeSetToServer bool
	Mtime *model.Time
	MtimeSetToServer bool
}

const (
	timeDontChange       = 0
	timeSetToServer      = 1
	timeSetToClient      = 2
)

func decodeSattr3(d *rpctransport.Decoder) (sattr3, error) {
	var s sattr3

	setMode, err := d.Bool()
	if err != nil {
		return s, err
	}
	if setMode {
		v, err := d.Uint32()
		if err != nil {
			return s, err
		}
		m := nfsModeToKFS(v)
		s.Mode = &m
	}

	setUID, err := d.Bool()
	if err != nil {
		return s, err
	}
	if setUID {
		v, err := d.Uint32()
		if err != nil {
			return s, err
		}
		s.UID = &v
	}

	setGID, err := d.Bool()
	if err != nil {
		return s, err
	}
	if setGID {
		v, err := d.Uint32()
		if err != nil {
			return s, err
		}
		s.GID = &v
	}

	setSize, err := d.Bool()
	if err != nil {
		return s, err
	}
	if setSize {
		v, err := d.Uint64()
		if err != nil {
			return s, err
		}
		s.Size = &v
	}

	atimeHow, err := d.Uint32()
	if err != nil {
		return s, err
	}
	switch atimeHow {
	case timeSetToClient:
		sec, err := d.Uint32()
		if err != nil {
			return s, err
		}
		nsec, err := d.Uint32()
		if err != nil {
			return s, err
		}
		s.Atime = &model.Time{Sec: uint64(sec), Nsec: uint64(nsec)}
	case timeSetToServer:
		s.AtimeSetToServer = true
	}

	mtimeHow, err := d.Uint32()
	if err != nil {
		return s, err
	}
	switch mtimeHow {
	case timeSetToClient:
		sec, err := d.Uint32()
		if err != nil {
			return s, err
		}
		nsec, err := d.Uint32()
		if err != nil {
			return s, err
		}
		s.Mtime = &model.Time{Sec: uint64(sec), Nsec: uint64(nsec)}
	case timeSetToServer:
		s.MtimeSetToServer = true
	}

	return s, nil
}

// applySattr3 applies s to path via fs's callbacks in the order spec.md
// §4.E prescribes: truncate, then chmod, then utimes (atime/mtime set in a
// single call). uid/gid requests are accepted only when they match the
// calling process's own, matching the "fixed to the calling process's"
// multi-user non-goal. Application stops at the first failure.
func applySattr3(ctx context.Context, fs model.FileSystem, path string, s sattr3) Status {
	if s.UID != nil && *s.UID != uint32(os.Getuid()) {
		return StatusNotSupp
	}
	if s.GID != nil && *s.GID != uint32(os.Getgid()) {
		return StatusNotSupp
	}

	if s.Size != nil {
		if err := fs.Truncate(ctx, path, *s.Size); err != nil {
			return whitelist(mapErrno(err, StatusIO), setattrWhitelist...)
		}
	}

	if s.Mode != nil {
		if err := fs.Chmod(ctx, path, *s.Mode); err != nil {
			return whitelist(mapErrno(err, StatusIO), setattrWhitelist...)
		}
	}

	if s.Atime != nil || s.Mtime != nil || s.AtimeSetToServer || s.MtimeSetToServer {
		if err := fs.Utimes(ctx, path, s.Atime, s.Mtime); err != nil {
			return whitelist(mapErrno(err, StatusIO), setattrWhitelist...)
		}
	}

	return StatusOK
}
