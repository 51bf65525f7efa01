// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileRegistryAllocatesStableIDs(t *testing.T) {
	r := newFileRegistry()

	id1 := r.FileID("/a")
	id2 := r.FileID("/a")
	require.Equal(t, id1, id2)

	id3 := r.FileID("/b")
	require.NotEqual(t, id1, id3)
	require.NotZero(t, id1)
	require.NotZero(t, id3)
}

func TestFileRegistryPathFromRoundTrips(t *testing.T) {
	r := newFileRegistry()

	id := r.FileID("/a/b")
	p, ok := r.PathFrom(id)
	require.True(t, ok)
	require.Equal(t, "/a/b", p)

	_, ok = r.PathFrom(FileID(99999))
	require.False(t, ok)
}

func TestFileRegistrySwapExchangesPaths(t *testing.T) {
	r := newFileRegistry()

	fromID := r.FileID("/old-name")
	toID := r.FileID("/new-name")

	require.NoError(t, r.Swap(fromID, toID))

	p, ok := r.PathFrom(fromID)
	require.True(t, ok)
	require.Equal(t, "/new-name", p)

	p, ok = r.PathFrom(toID)
	require.True(t, ok)
	require.Equal(t, "/old-name", p)
}

func TestFileRegistrySwapRejectsUnknownID(t *testing.T) {
	r := newFileRegistry()

	known := r.FileID("/a")
	err := r.Swap(known, FileID(123456))
	require.Error(t, err)
}

func TestFileRegistryClearResetsState(t *testing.T) {
	r := newFileRegistry()

	id := r.FileID("/a")
	r.clear()

	_, ok := r.PathFrom(id)
	require.False(t, ok)

	// After clear, the next allocation for the same path gets a fresh ID,
	// not necessarily the same one it had before.
	newID := r.FileID("/a")
	require.NotZero(t, newID)
}
