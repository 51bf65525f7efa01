//go:build !linux

package kfs

import (
	"fmt"
	"runtime"
)

type mountArgs struct {
	Mountpoint string
	Port       int
	FsID       FsID
	ReadOnly   bool
}

// performMount is unimplemented outside Linux: grafting a loopback NFSv3
// export onto the namespace requires OS-specific mount(2) arguments (the
// original C library's struct nfs_args3 on BSD/Darwin), which this package
// does not yet build.
func performMount(args mountArgs) error {
	return fmt.Errorf("kfs: mounting is not supported on %s", runtime.GOOS)
}

func performUnmount(mountpoint string) error {
	return fmt.Errorf("kfs: unmounting is not supported on %s", runtime.GOOS)
}
