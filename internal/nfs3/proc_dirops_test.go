// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fadingred/kfs/internal/model"
	"github.com/fadingred/kfs/internal/rpctransport"
)

// fakeDirFS is a minimal in-memory model.FileSystem that records which
// paths have been created/removed, enough to drive CREATE/MKDIR's
// rollback behavior without touching the host filesystem.
type fakeDirFS struct {
	stat    map[string]model.Stat
	removed []string
	rmdirs  []string
}

func newFakeDirFS() *fakeDirFS {
	return &fakeDirFS{stat: map[string]model.Stat{
		"/": {Type: model.TypeDir},
	}}
}

func (f *fakeDirFS) toFileSystem() model.FileSystem {
	fs := model.FileSystem{
		Stat: func(ctx context.Context, path string) (model.Stat, error) {
			st, ok := f.stat[path]
			if !ok {
				return model.Stat{}, model.ErrNotSupported
			}
			return st, nil
		},
		Create: func(ctx context.Context, path string) error {
			f.stat[path] = model.Stat{Type: model.TypeReg}
			return nil
		},
		Mkdir: func(ctx context.Context, path string) error {
			f.stat[path] = model.Stat{Type: model.TypeDir}
			return nil
		},
		Remove: func(ctx context.Context, path string) error {
			delete(f.stat, path)
			f.removed = append(f.removed, path)
			return nil
		},
		Rmdir: func(ctx context.Context, path string) error {
			delete(f.stat, path)
			f.rmdirs = append(f.rmdirs, path)
			return nil
		},
		Truncate: func(ctx context.Context, path string, size uint64) error {
			return nil
		},
		Chmod: func(ctx context.Context, path string, mode model.Mode) error {
			return nil
		},
	}
	return fs.WithDefaults()
}

func newDirOpsEngine(f *fakeDirFS) (*Engine, *fakeResolver) {
	reg := newFakeRegistry()
	reg.FileID("/")
	resolver := &fakeResolver{fsid: model.FsID(0), fs: f.toFileSystem(), reg: reg}
	return New(resolver), resolver
}

// noopSattr3 encodes a sattr3 requesting no attribute changes at all.
func noopSattr3(e *rpctransport.Encoder) {
	e.PutBool(false) // set_mode
	e.PutBool(false) // set_uid
	e.PutBool(false) // set_gid
	e.PutBool(false) // set_size
	e.PutUint32(timeDontChange)
	e.PutUint32(timeDontChange)
}

// badUIDSattr3 encodes a sattr3 that requests a uid change applySattr3 can
// never honor (this server is fixed to the calling process's own uid/gid),
// forcing applySattr3 to fail deterministically without faking syscalls.
func badUIDSattr3(e *rpctransport.Encoder) {
	e.PutBool(false) // set_mode
	e.PutBool(true)  // set_uid
	e.PutUint32(uint32(os.Getuid()) + 1)
	e.PutBool(false) // set_gid
	e.PutBool(false) // set_size
	e.PutUint32(timeDontChange)
	e.PutUint32(timeDontChange)
}

func TestHandleCreateExclusiveReturnsNotSupportedAndDoesNotCreate(t *testing.T) {
	f := newFakeDirFS()
	e, resolver := newDirOpsEngine(f)

	args := rpctransport.NewEncoder()
	args.PutOpaque([]byte(bareRootHandle(resolver.fsid)))
	args.PutString("exclusive-file")
	args.PutUint32(createExclusive)
	args.PutFixedOpaque(make([]byte, 8), 8) // verifier

	reply, err := e.Dispatch(procCreate, args.Bytes())
	require.NoError(t, err)

	d := rpctransport.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusNotSupp, status)

	_, ok := f.stat["/exclusive-file"]
	require.False(t, ok)
}

func TestHandleCreateUncheckedSucceeds(t *testing.T) {
	f := newFakeDirFS()
	e, resolver := newDirOpsEngine(f)

	args := rpctransport.NewEncoder()
	args.PutOpaque([]byte(bareRootHandle(resolver.fsid)))
	args.PutString("new-file")
	args.PutUint32(createUnchecked)
	noopSattr3(args)

	reply, err := e.Dispatch(procCreate, args.Bytes())
	require.NoError(t, err)

	d := rpctransport.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusOK, status)

	_, ok := f.stat["/new-file"]
	require.True(t, ok)
}

func TestHandleCreateGuardedFailsIfNameExists(t *testing.T) {
	f := newFakeDirFS()
	f.stat["/already-there"] = model.Stat{Type: model.TypeReg}
	e, resolver := newDirOpsEngine(f)

	args := rpctransport.NewEncoder()
	args.PutOpaque([]byte(bareRootHandle(resolver.fsid)))
	args.PutString("already-there")
	args.PutUint32(createGuarded)
	noopSattr3(args)

	reply, err := e.Dispatch(procCreate, args.Bytes())
	require.NoError(t, err)

	d := rpctransport.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusExist, status)
}

// TestHandleCreateRollsBackOnAttributeFailure exercises the maintainer's
// required behavior: a CREATE whose post-create attribute application
// fails must best-effort remove the file it just created and report the
// attribute-set status, not StatusOK, to the client.
func TestHandleCreateRollsBackOnAttributeFailure(t *testing.T) {
	f := newFakeDirFS()
	e, resolver := newDirOpsEngine(f)

	args := rpctransport.NewEncoder()
	args.PutOpaque([]byte(bareRootHandle(resolver.fsid)))
	args.PutString("doomed-file")
	args.PutUint32(createUnchecked)
	badUIDSattr3(args)

	reply, err := e.Dispatch(procCreate, args.Bytes())
	require.NoError(t, err)

	d := rpctransport.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusNotSupp, status)

	_, ok := f.stat["/doomed-file"]
	require.False(t, ok)
	require.Contains(t, f.removed, "/doomed-file")
}

// TestHandleMkdirRollsBackOnAttributeFailure mirrors the CREATE rollback
// test but for MKDIR, which must rmdir (not remove) the directory it just
// made.
func TestHandleMkdirRollsBackOnAttributeFailure(t *testing.T) {
	f := newFakeDirFS()
	e, resolver := newDirOpsEngine(f)

	args := rpctransport.NewEncoder()
	args.PutOpaque([]byte(bareRootHandle(resolver.fsid)))
	args.PutString("doomed-dir")
	badUIDSattr3(args)

	reply, err := e.Dispatch(procMkdir, args.Bytes())
	require.NoError(t, err)

	d := rpctransport.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusNotSupp, status)

	_, ok := f.stat["/doomed-dir"]
	require.False(t, ok)
	require.Contains(t, f.rmdirs, "/doomed-dir")
}

func TestHandleMkdirSucceeds(t *testing.T) {
	f := newFakeDirFS()
	e, resolver := newDirOpsEngine(f)

	args := rpctransport.NewEncoder()
	args.PutOpaque([]byte(bareRootHandle(resolver.fsid)))
	args.PutString("new-dir")
	noopSattr3(args)

	reply, err := e.Dispatch(procMkdir, args.Bytes())
	require.NoError(t, err)

	d := rpctransport.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusOK, status)

	st, ok := f.stat["/new-dir"]
	require.True(t, ok)
	require.Equal(t, model.TypeDir, st.Type)
}
