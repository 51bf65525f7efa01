// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Package model holds the data types shared between the public kfs package
// and the internal/nfs3 procedure engine: the callback contract, the
// attribute structs, and the small interfaces the engine uses to resolve a
// file handle's FsID down to a FileSystem and its path<->id registry.
//
// It exists as its own leaf package — the same role fuseops plays for
// jacobsa/fuse — so that internal/nfs3 can depend on these types without
// creating an import cycle with the root kfs package, which in turn
// depends on internal/nfs3 to construct the procedure engine.
package model

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// FsID identifies a mounted filesystem within this process, in [0, maxFS).
type FsID int32

// FileID is a 64-bit value unique within a given FsID, allocated
// monotonically starting at 1. Zero is reserved and never issued.
type FileID uint64

// FileType is the type of a filesystem entry, as reported by a Stat
// callback. It is distinct from both the POSIX and the NFSv3 type
// enumerations.
type FileType int

const (
	TypeReg FileType = iota
	TypeDir
	TypeBlk
	TypeChr
	TypeLnk
	TypeSock
	TypeFifo
)

// Mode is a 9-bit permission bitmap using KFS-defined bit values, distinct
// from both POSIX and NFSv3 numeric mode bits.
type Mode uint32

const (
	ModeIRUSR Mode = 0x400
	ModeIWUSR Mode = 0x200
	ModeIXUSR Mode = 0x100
	ModeIRGRP Mode = 0x040
	ModeIWGRP Mode = 0x020
	ModeIXGRP Mode = 0x010
	ModeIROTH Mode = 0x004
	ModeIWOTH Mode = 0x002
	ModeIXOTH Mode = 0x001

	ModeAllBits = ModeIRUSR | ModeIWUSR | ModeIXUSR |
		ModeIRGRP | ModeIWGRP | ModeIXGRP |
		ModeIROTH | ModeIWOTH | ModeIXOTH
)

// Time is a seconds/nanoseconds timestamp, kept as a distinct type (rather
// than time.Time) because it round-trips through NFSv3 wire attributes at
// this resolution and no finer.
type Time struct {
	Sec  uint64
	Nsec uint64
}

// Stat mirrors the attributes a callback's stat function must fill in.
type Stat struct {
	Type  FileType
	Mode  Mode
	Size  uint64
	Used  uint64
	Atime Time
	Mtime Time
	Ctime Time
}

// StatFS mirrors the attributes a callback's statfs function must fill in.
type StatFS struct {
	Free uint64
	Size uint64
}

// Contents is a growable ordered sequence of directory entry names, built
// by a FileSystem's Readdir callback and consumed by the NFSv3 READDIR
// procedure (spec.md component A). Backing storage grows geometrically;
// the zero value is ready to use.
type Contents struct {
	names []string
}

func NewContents() *Contents {
	return &Contents{}
}

func (c *Contents) Append(name string) {
	if c.names == nil {
		c.names = make([]string, 0, 1)
	}
	c.names = append(c.names, name)
}

func (c *Contents) Count() int {
	return len(c.names)
}

func (c *Contents) At(i int) (string, bool) {
	if i < 0 || i >= len(c.names) {
		return "", false
	}
	return c.names[i], true
}

// The callback contract an application must implement (spec.md §6). Every
// callback reports failure by returning a non-nil error; internal/nfs3
// maps that error to an NFSv3 status code per-procedure (spec.md §4.D).
type (
	StatFSFunc   func(ctx context.Context, path string) (StatFS, error)
	StatFunc     func(ctx context.Context, path string) (Stat, error)
	ReadFunc     func(ctx context.Context, path string, offset uint64, p []byte) (n int, err error)
	WriteFunc    func(ctx context.Context, path string, offset uint64, p []byte) (n int, err error)
	SymlinkFunc  func(ctx context.Context, path, target string) error
	ReadlinkFunc func(ctx context.Context, path string) (target string, err error)
	CreateFunc   func(ctx context.Context, path string) error
	RemoveFunc   func(ctx context.Context, path string) error
	RenameFunc   func(ctx context.Context, from, to string) error
	TruncateFunc func(ctx context.Context, path string, size uint64) error
	ChmodFunc    func(ctx context.Context, path string, mode Mode) error
	UtimesFunc   func(ctx context.Context, path string, atime, mtime *Time) error
	MkdirFunc    func(ctx context.Context, path string) error
	RmdirFunc    func(ctx context.Context, path string) error
	ReaddirFunc  func(ctx context.Context, path string, contents *Contents) error
)

// Options carries per-mount configuration.
type Options struct {
	// Mountpoint is the absolute path at which the filesystem should be
	// grafted onto the host namespace.
	Mountpoint string
}

// FileSystem bundles the callbacks that implement a user-defined
// filesystem and the Options under which it should be mounted.
//
// Any field left nil is replaced at Mount time with a sentinel that fails
// with a "not supported" status, so internal/nfs3 never has to nil-check a
// callback.
type FileSystem struct {
	StatFS   StatFSFunc
	Stat     StatFunc
	Read     ReadFunc
	Write    WriteFunc
	Symlink  SymlinkFunc
	Readlink ReadlinkFunc
	Create   CreateFunc
	Remove   RemoveFunc
	Rename   RenameFunc
	Truncate TruncateFunc
	Chmod    ChmodFunc
	Utimes   UtimesFunc
	Mkdir    MkdirFunc
	Rmdir    RmdirFunc
	Readdir  ReaddirFunc

	Options Options
}

// HasAnyWriteCallback reports whether any mutating callback is present.
func (fs *FileSystem) HasAnyWriteCallback() bool {
	return fs.Write != nil || fs.Create != nil || fs.Remove != nil ||
		fs.Rename != nil || fs.Truncate != nil || fs.Mkdir != nil || fs.Rmdir != nil
}

// ErrNotSupported is returned by the sentinel callback WithDefaults
// installs in place of every unset slot (spec.md §4.C: "the engine never
// has to null-check callbacks").
var ErrNotSupported = fmt.Errorf("kfs: operation not supported by this filesystem")

// WithDefaults returns a copy of fs with every nil callback replaced by a
// sentinel that fails with ErrNotSupported, so internal/nfs3 can invoke any
// field unconditionally. Called once by the mount table when a filesystem
// is registered.
func (fs FileSystem) WithDefaults() FileSystem {
	if fs.StatFS == nil {
		fs.StatFS = func(ctx context.Context, path string) (StatFS, error) { return StatFS{}, ErrNotSupported }
	}
	if fs.Stat == nil {
		fs.Stat = func(ctx context.Context, path string) (Stat, error) { return Stat{}, ErrNotSupported }
	}
	if fs.Read == nil {
		fs.Read = func(ctx context.Context, path string, offset uint64, p []byte) (int, error) { return 0, ErrNotSupported }
	}
	if fs.Write == nil {
		fs.Write = func(ctx context.Context, path string, offset uint64, p []byte) (int, error) { return 0, ErrNotSupported }
	}
	if fs.Symlink == nil {
		fs.Symlink = func(ctx context.Context, path, target string) error { return ErrNotSupported }
	}
	if fs.Readlink == nil {
		fs.Readlink = func(ctx context.Context, path string) (string, error) { return "", ErrNotSupported }
	}
	if fs.Create == nil {
		fs.Create = func(ctx context.Context, path string) error { return ErrNotSupported }
	}
	if fs.Remove == nil {
		fs.Remove = func(ctx context.Context, path string) error { return ErrNotSupported }
	}
	if fs.Rename == nil {
		fs.Rename = func(ctx context.Context, from, to string) error { return ErrNotSupported }
	}
	if fs.Truncate == nil {
		fs.Truncate = func(ctx context.Context, path string, size uint64) error { return ErrNotSupported }
	}
	if fs.Chmod == nil {
		fs.Chmod = func(ctx context.Context, path string, mode Mode) error { return ErrNotSupported }
	}
	if fs.Utimes == nil {
		fs.Utimes = func(ctx context.Context, path string, atime, mtime *Time) error { return ErrNotSupported }
	}
	if fs.Mkdir == nil {
		fs.Mkdir = func(ctx context.Context, path string) error { return ErrNotSupported }
	}
	if fs.Rmdir == nil {
		fs.Rmdir = func(ctx context.Context, path string) error { return ErrNotSupported }
	}
	if fs.Readdir == nil {
		fs.Readdir = func(ctx context.Context, path string, contents *Contents) error { return ErrNotSupported }
	}
	return fs
}

// Registry is the per-mount bidirectional path<->FileID map that
// internal/nfs3 needs (spec.md component B). The concrete implementation
// lives in the root kfs package; this interface lets nfs3 depend on the
// behavior without depending on that package.
type Registry interface {
	FileID(path string) FileID
	PathFrom(id FileID) (string, bool)
	Swap(a, b FileID) error
}

// Resolver looks up the FileSystem and Registry for a live FsID. The root
// kfs package's mount table implements this.
type Resolver interface {
	Resolve(id FsID) (fs FileSystem, reg Registry, ok bool)
}

// FormatHandle renders the wire form of an NFSv3 file handle:
// "<fsid>:<fileid>". Shared between the root kfs package (which builds the
// bootstrap root handle at mount time) and internal/nfs3 (which builds and
// parses handles on every procedure), hence its home in this leaf package.
func FormatHandle(fs FsID, file FileID) string {
	return fmt.Sprintf("%d:%d", int32(fs), uint64(file))
}

// ParseHandle is FormatHandle's inverse. A handle missing the ":" separator
// is treated as a bare FsID addressing that mount's root, matching the
// handle the mount orchestrator hands the kernel before any LOOKUP has
// occurred.
func ParseHandle(s string) (fs FsID, file FileID, needsRoot bool, err error) {
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		n, perr := strconv.ParseInt(s, 10, 32)
		if perr != nil {
			return 0, 0, false, fmt.Errorf("model: malformed handle %q: %w", s, perr)
		}
		return FsID(n), 0, true, nil
	}

	fsPart, filePart := s[:idx], s[idx+1:]

	fsn, perr := strconv.ParseInt(fsPart, 10, 32)
	if perr != nil {
		return 0, 0, false, fmt.Errorf("model: malformed handle %q: bad fsid: %w", s, perr)
	}
	filen, perr := strconv.ParseUint(filePart, 10, 64)
	if perr != nil {
		return 0, 0, false, fmt.Errorf("model: malformed handle %q: bad fileid: %w", s, perr)
	}

	return FsID(fsn), FileID(filen), false, nil
}
