// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fadingred/kfs/internal/model"
	"github.com/fadingred/kfs/internal/rpctransport"
)

// fakeRegistry is the smallest model.Registry that satisfies the engine's
// needs for handle round-tripping in tests.
type fakeRegistry struct {
	pathToID map[string]model.FileID
	idToPath map[model.FileID]string
	next     model.FileID
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		pathToID: map[string]model.FileID{},
		idToPath: map[model.FileID]string{},
		next:     1,
	}
}

func (r *fakeRegistry) FileID(path string) model.FileID {
	if id, ok := r.pathToID[path]; ok {
		return id
	}
	id := r.next
	r.next++
	r.pathToID[path] = id
	r.idToPath[id] = path
	return id
}

func (r *fakeRegistry) PathFrom(id model.FileID) (string, bool) {
	p, ok := r.idToPath[id]
	return p, ok
}

func (r *fakeRegistry) Swap(a, b model.FileID) error {
	pa, ok := r.idToPath[a]
	if !ok {
		return fmt.Errorf("unknown id %d", a)
	}
	pb, ok := r.idToPath[b]
	if !ok {
		return fmt.Errorf("unknown id %d", b)
	}
	r.idToPath[a], r.idToPath[b] = pb, pa
	r.pathToID[pa], r.pathToID[pb] = b, a
	return nil
}

// fakeResolver backs a single in-memory filesystem with a fixed FsID,
// enough to drive Engine.Dispatch end to end without a real mount.
type fakeResolver struct {
	fsid model.FsID
	fs   model.FileSystem
	reg  *fakeRegistry
}

func (r *fakeResolver) Resolve(id model.FsID) (model.FileSystem, model.Registry, bool) {
	if id != r.fsid {
		return model.FileSystem{}, nil, false
	}
	return r.fs, r.reg, true
}

func newTestEngine() (*Engine, *fakeResolver) {
	reg := newFakeRegistry()
	reg.FileID("/") // root is always FileID 1

	files := map[string]model.Stat{
		"/":      {Type: model.TypeDir, Mode: model.ModeIRUSR | model.ModeIXUSR},
		"/hello": {Type: model.TypeReg, Mode: model.ModeIRUSR, Size: 5},
	}

	fs := model.FileSystem{
		Stat: func(ctx context.Context, path string) (model.Stat, error) {
			st, ok := files[path]
			if !ok {
				return model.Stat{}, model.ErrNotSupported
			}
			return st, nil
		},
		Readdir: func(ctx context.Context, path string, contents *model.Contents) error {
			contents.Append(".")
			contents.Append("..")
			contents.Append("hello")
			return nil
		},
	}
	fs = fs.WithDefaults()

	resolver := &fakeResolver{fsid: model.FsID(0), fs: fs, reg: reg}
	return New(resolver), resolver
}

// bareRootHandle renders the root-addressing handle form model.ParseHandle
// recognizes: a plain FsID with no ":fileid" suffix.
func bareRootHandle(fsid model.FsID) string {
	return fmt.Sprintf("%d", int32(fsid))
}

func rootHandleBytes(fsid model.FsID) []byte {
	e := rpctransport.NewEncoder()
	e.PutOpaque([]byte(bareRootHandle(fsid)))
	return e.Bytes()
}

func TestDispatchNullSucceeds(t *testing.T) {
	e, _ := newTestEngine()
	reply, err := e.Dispatch(procNull, nil)
	require.NoError(t, err)
	require.Empty(t, reply)
}

func TestDispatchUnknownProcReturnsProcUnavail(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.Dispatch(999, nil)
	require.ErrorIs(t, err, rpctransport.ErrProcUnavail)
}

func TestDispatchGetattrOnRoot(t *testing.T) {
	e, resolver := newTestEngine()

	reply, err := e.Dispatch(procGetattr, rootHandleBytes(resolver.fsid))
	require.NoError(t, err)

	d := rpctransport.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusOK, status)

	ftype, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, ftypeDir, ftype)
}

func TestDispatchLookupThenGetattr(t *testing.T) {
	e, resolver := newTestEngine()

	args := rpctransport.NewEncoder()
	args.PutOpaque([]byte(bareRootHandle(resolver.fsid)))
	args.PutString("hello")

	reply, err := e.Dispatch(procLookup, args.Bytes())
	require.NoError(t, err)

	d := rpctransport.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusOK, status)

	handle, err := d.Opaque(maxHandleLen)
	require.NoError(t, err)

	childFsid, childFileid, needsRoot, err := model.ParseHandle(string(handle))
	require.NoError(t, err)
	require.False(t, needsRoot)
	require.Equal(t, resolver.fsid, childFsid)

	p, ok := resolver.reg.PathFrom(childFileid)
	require.True(t, ok)
	require.Equal(t, "/hello", p)

	getattrArgs := rpctransport.NewEncoder()
	getattrArgs.PutOpaque(handle)

	reply, err = e.Dispatch(procGetattr, getattrArgs.Bytes())
	require.NoError(t, err)

	d = rpctransport.NewDecoder(reply)
	status, err = d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusOK, status)

	ftype, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, ftypeReg, ftype)
}

func TestDispatchGetattrOnStaleHandleFails(t *testing.T) {
	e, _ := newTestEngine()

	args := rpctransport.NewEncoder()
	args.PutOpaque([]byte(model.FormatHandle(model.FsID(0), 999)))

	reply, err := e.Dispatch(procGetattr, args.Bytes())
	require.NoError(t, err)

	d := rpctransport.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusStale, status)
}

func TestDispatchReaddirListsEntries(t *testing.T) {
	e, resolver := newTestEngine()

	args := rpctransport.NewEncoder()
	args.PutOpaque([]byte(bareRootHandle(resolver.fsid)))
	args.PutUint64(0) // cookie
	args.PutFixedOpaque(nil, 8)
	args.PutUint32(8192)

	reply, err := e.Dispatch(procReaddir, args.Bytes())
	require.NoError(t, err)

	d := rpctransport.NewDecoder(reply)
	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusOK, status)

	follows, err := d.Bool()
	require.NoError(t, err)
	require.True(t, follows)
	for i := 0; i < 21; i++ { // fattr3: 84 bytes
		_, err := d.Uint32()
		require.NoError(t, err)
	}
	_, err = d.FixedOpaque(8) // cookieverf
	require.NoError(t, err)

	var names []string
	for {
		more, err := d.Bool()
		require.NoError(t, err)
		if !more {
			break
		}
		_, err = d.Uint64() // fileid
		require.NoError(t, err)
		name, err := d.String(maxNameLen)
		require.NoError(t, err)
		_, err = d.Uint64() // cookie
		require.NoError(t, err)
		names = append(names, name)
	}
	require.Equal(t, []string{".", "..", "hello"}, names)

	eof, err := d.Bool()
	require.NoError(t, err)
	require.True(t, eof)
}
