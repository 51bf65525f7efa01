// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package nfs3

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fadingred/kfs/internal/model"
	"github.com/fadingred/kfs/internal/rpctransport"
)

type fsinfoCaps struct {
	rtmax, rtpref, rtmult       uint32
	wtmax, wtpref, wtmult       uint32
	dtpref                      uint32
	maxfilesize                 uint64
	timeDeltaSec, timeDeltaNsec uint32
	properties                  uint32
}

// decodeFsinfoReply decodes a successful FSINFO reply: status, a post_op_attr
// (skipped if present), then the fixed capability block this test compares.
func decodeFsinfoReply(t *testing.T, reply []byte) fsinfoCaps {
	t.Helper()

	d := rpctransport.NewDecoder(reply)

	status, err := d.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, StatusOK, status)

	follows, err := d.Bool()
	require.NoError(t, err)
	if follows {
		// fattr3: 5 uint32 words, 2 uint64 words (size, used), 2 uint32
		// words (rdev), 2 uint64 words (fsid, fileid), then 3
		// (atime/mtime/ctime) pairs of uint32 words = 5+4+2+4+6 = 21
		// 4-byte words: matches encodeFattr3's exact field order.
		for i := 0; i < 5; i++ {
			_, err := d.Uint32()
			require.NoError(t, err)
		}
		_, err = d.Uint64() // size
		require.NoError(t, err)
		_, err = d.Uint64() // used
		require.NoError(t, err)
		_, err = d.Uint32() // rdev.specdata1
		require.NoError(t, err)
		_, err = d.Uint32() // rdev.specdata2
		require.NoError(t, err)
		_, err = d.Uint64() // fsid
		require.NoError(t, err)
		_, err = d.Uint64() // fileid
		require.NoError(t, err)
		for i := 0; i < 6; i++ { // atime, mtime, ctime (sec, nsec each)
			_, err := d.Uint32()
			require.NoError(t, err)
		}
	}

	return decodeFsinfoCaps(t, d)
}

func decodeFsinfoCaps(t *testing.T, d *rpctransport.Decoder) fsinfoCaps {
	t.Helper()

	var c fsinfoCaps
	var err error

	c.rtmax, err = d.Uint32()
	require.NoError(t, err)
	c.rtpref, err = d.Uint32()
	require.NoError(t, err)
	c.rtmult, err = d.Uint32()
	require.NoError(t, err)
	c.wtmax, err = d.Uint32()
	require.NoError(t, err)
	c.wtpref, err = d.Uint32()
	require.NoError(t, err)
	c.wtmult, err = d.Uint32()
	require.NoError(t, err)
	c.dtpref, err = d.Uint32()
	require.NoError(t, err)
	c.maxfilesize, err = d.Uint64()
	require.NoError(t, err)
	c.timeDeltaSec, err = d.Uint32()
	require.NoError(t, err)
	c.timeDeltaNsec, err = d.Uint32()
	require.NoError(t, err)
	c.properties, err = d.Uint32()
	require.NoError(t, err)

	return c
}

// TestFsinfoCapabilitiesAreConstantAcrossObjects drives FSINFO against the
// mount's root and against a regular file within it and checks the
// reported transport capabilities are identical either way, since FSINFO's
// capability block never varies by target object (spec.md §8 invariant 5).
func TestFsinfoCapabilitiesAreConstantAcrossObjects(t *testing.T) {
	e, resolver := newTestEngine()

	rootReply, err := e.Dispatch(procFsinfo, rootHandleBytes(resolver.fsid))
	require.NoError(t, err)

	helloID := resolver.reg.FileID("/hello")
	args := rpctransport.NewEncoder()
	args.PutOpaque([]byte(model.FormatHandle(resolver.fsid, helloID)))
	fileReply, err := e.Dispatch(procFsinfo, args.Bytes())
	require.NoError(t, err)

	require.Equal(t, decodeFsinfoReply(t, rootReply), decodeFsinfoReply(t, fileReply))
}

func TestFsinfoReportsFixedCapabilityValues(t *testing.T) {
	e, resolver := newTestEngine()

	reply, err := e.Dispatch(procFsinfo, rootHandleBytes(resolver.fsid))
	require.NoError(t, err)

	caps := decodeFsinfoReply(t, reply)
	require.EqualValues(t, fsinfoRtmax, caps.rtmax)
	require.EqualValues(t, fsinfoWtmax, caps.wtmax)
	require.EqualValues(t, fsinfoDtpref, caps.dtpref)
	require.EqualValues(t, fsinfoMaxfilesize, caps.maxfilesize)
	require.EqualValues(t, fsinfoTimeDelta, caps.timeDeltaSec)
	require.NotZero(t, caps.properties&fsinfoPropSymlink)
	require.NotZero(t, caps.properties&fsinfoPropHomogeneous)
}
