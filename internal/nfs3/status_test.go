// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapErrnoTranslatesKnownCodes(t *testing.T) {
	require.Equal(t, StatusNoEnt, mapErrno(syscall.ENOENT, StatusIO))
	require.Equal(t, StatusExist, mapErrno(syscall.EEXIST, StatusIO))
	require.Equal(t, StatusNotEmpty, mapErrno(syscall.ENOTEMPTY, StatusIO))
}

func TestMapErrnoFallsBackOnUnknownError(t *testing.T) {
	require.Equal(t, StatusIO, mapErrno(fmt.Errorf("some opaque failure"), StatusIO))
}

func TestMapErrnoWrapsErrno(t *testing.T) {
	wrapped := fmt.Errorf("open: %w", syscall.EACCES)
	require.Equal(t, StatusAcces, mapErrno(wrapped, StatusIO))
}

func TestWhitelistPassesAllowedStatus(t *testing.T) {
	require.Equal(t, StatusNoEnt, whitelist(StatusNoEnt, StatusOK, StatusNoEnt, StatusIO))
}

func TestWhitelistFallsBackToServerFault(t *testing.T) {
	require.Equal(t, StatusServerFault, whitelist(StatusMlink, StatusOK, StatusNoEnt))
}
