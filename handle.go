// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import "github.com/fadingred/kfs/internal/model"

// FormatHandle renders the wire form of an NFSv3 file handle:
// "<fsid>:<fileid>".
func FormatHandle(fs FsID, file FileID) string {
	return model.FormatHandle(fs, file)
}

// ParseHandle is FormatHandle's inverse. A handle missing the ":" separator
// is treated as a bare FsID addressing that mount's root.
func ParseHandle(s string) (fs FsID, file FileID, needsRoot bool, err error) {
	return model.ParseHandle(s)
}
