// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kfs lets application code expose an in-process, user-defined
// filesystem as a real mounted volume on a POSIX host, without any kernel
// extension.
//
// It embeds a minimal NFSv3 server that listens on a loopback TCP port (see
// internal/rpctransport), asks the kernel's native NFS client to mount that
// endpoint, and translates inbound NFS RPCs into calls on a FileSystem
// supplied by the application (see internal/nfs3).
//
// The primary elements of interest are:
//
//  *  The FileSystem struct, which defines the callbacks a filesystem must
//     implement.
//
//  *  Mount, which registers a FileSystem and asks the host kernel to mount
//     it over NFSv3.
//
// Currently unsupported: hard links, MKNOD, READDIRPLUS, COMMIT,
// multi-user uid/gid, exclusive create, cross-mount rename, byte-range
// locking. Mounting requires the ability to bind loopback TCP sockets and
// issue the host's NFS mount syscall, which on most platforms requires root
// or an equivalent privilege.
package kfs
