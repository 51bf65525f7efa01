// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package kfs

import "github.com/fadingred/kfs/internal/model"

// These are aliases onto internal/model's types, which is where the
// definitions live so that internal/nfs3 can share them without creating
// an import cycle back to this package (see internal/model's doc comment).
type (
	FileType = model.FileType
	Mode     = model.Mode
	Time     = model.Time
	Stat     = model.Stat
	StatFS   = model.StatFS
)

const (
	TypeReg  = model.TypeReg
	TypeDir  = model.TypeDir
	TypeBlk  = model.TypeBlk
	TypeChr  = model.TypeChr
	TypeLnk  = model.TypeLnk
	TypeSock = model.TypeSock
	TypeFifo = model.TypeFifo
)

const (
	ModeIRUSR = model.ModeIRUSR
	ModeIWUSR = model.ModeIWUSR
	ModeIXUSR = model.ModeIXUSR
	ModeIRGRP = model.ModeIRGRP
	ModeIWGRP = model.ModeIWGRP
	ModeIXGRP = model.ModeIXGRP
	ModeIROTH = model.ModeIROTH
	ModeIWOTH = model.ModeIWOTH
	ModeIXOTH = model.ModeIXOTH
)
