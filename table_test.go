// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDescriptor(mountpoint string) *descriptor {
	return &descriptor{
		fs:         FileSystem{Options: Options{Mountpoint: mountpoint}},
		mountpoint: mountpoint,
		registry:   newFileRegistry(),
	}
}

func TestMountTablePutAssignsDistinctIDs(t *testing.T) {
	tbl := newMountTable()

	id1, err := tbl.put(newTestDescriptor("/mnt/a"))
	require.NoError(t, err)

	id2, err := tbl.put(newTestDescriptor("/mnt/b"))
	require.NoError(t, err)

	require.NotEqual(t, id1, id2)
}

func TestMountTablePutRejectsDuplicateMountpoint(t *testing.T) {
	tbl := newMountTable()

	_, err := tbl.put(newTestDescriptor("/mnt/a"))
	require.NoError(t, err)

	_, err = tbl.put(newTestDescriptor("/mnt/a"))
	require.ErrorIs(t, err, ErrMountpointBusy)
}

func TestMountTablePutInstallsDefaultCallbacks(t *testing.T) {
	tbl := newMountTable()

	id, err := tbl.put(newTestDescriptor("/mnt/a"))
	require.NoError(t, err)

	d := tbl.get(id)
	require.NotNil(t, d)

	_, statErr := d.fs.Stat(context.Background(), "/")
	require.ErrorIs(t, statErr, ErrNotSupported)
}

func TestMountTableRemoveFreesSlot(t *testing.T) {
	tbl := newMountTable()

	id, err := tbl.put(newTestDescriptor("/mnt/a"))
	require.NoError(t, err)

	removed := tbl.remove(id)
	require.NotNil(t, removed)
	require.Nil(t, tbl.get(id))

	// The freed mountpoint can now be reused.
	_, err = tbl.put(newTestDescriptor("/mnt/a"))
	require.NoError(t, err)
}

func TestMountTableFullReturnsError(t *testing.T) {
	tbl := newMountTable()

	for i := 0; i < maxFS; i++ {
		mountpoint := "/mnt/" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		_, err := tbl.put(newTestDescriptor(mountpoint))
		require.NoError(t, err)
	}

	_, err := tbl.put(newTestDescriptor("/mnt/overflow"))
	require.ErrorIs(t, err, ErrMountTableFull)
}

func TestMountTableResolveImplementsModelResolver(t *testing.T) {
	tbl := newMountTable()

	id, err := tbl.put(newTestDescriptor("/mnt/a"))
	require.NoError(t, err)

	fs, reg, ok := tbl.Resolve(id)
	require.True(t, ok)
	require.NotNil(t, reg)
	require.NotNil(t, fs.Stat)

	_, _, ok = tbl.Resolve(FsID(99999))
	require.False(t, ok)
}
