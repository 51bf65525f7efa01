// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import "github.com/fadingred/kfs/internal/model"

// Contents is a growable ordered sequence of directory entry names, built
// by a FileSystem's Readdir callback and consumed by the NFSv3 READDIR
// procedure. It is single-owner; callers must not share one across
// goroutines.
type Contents = model.Contents

// NewContents returns an empty directory listing.
func NewContents() *Contents {
	return model.NewContents()
}
