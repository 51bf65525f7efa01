// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

// Command kfsmount grafts a directory tree onto the host namespace as an
// NFSv3-backed mount, using examples/passthroughfs as the user-defined
// filesystem. It exists to exercise kfs.Mount end to end from the command
// line, the way gcsfuse's cmd package exercises jacobsa/fuse.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fadingred/kfs"
	"github.com/fadingred/kfs/examples/passthroughfs"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "kfsmount backing_dir mount_point",
	Short: "Mount a directory tree as a loopback NFSv3 volume",
	Long: `kfsmount exports backing_dir through kfs as a real NFSv3 mount at
mount_point, using the process-local passthroughfs implementation as the
callback set. It blocks until interrupted, then unmounts and exits.`,
	Args: cobra.ExactArgs(2),
	RunE: runMount,
}

func init() {
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log NFSv3 request/response traffic at debug level")
}

func runMount(cmd *cobra.Command, args []string) error {
	backing, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving backing directory: %w", err)
	}
	mountpoint, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("resolving mount point: %w", err)
	}

	if debug {
		kfs.Logger().SetLevel(logrus.DebugLevel)
	}

	fs, err := passthroughfs.New(backing, mountpoint)
	if err != nil {
		return fmt.Errorf("setting up passthroughfs: %w", err)
	}

	id, err := kfs.Mount(fs)
	if err != nil {
		return fmt.Errorf("mounting: %w", err)
	}

	fmt.Fprintf(os.Stdout, "mounted %s at %s (fsid %d); press Ctrl-C to unmount\n", backing, mountpoint, int32(id))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	if err := kfs.Unmount(id); err != nil {
		return fmt.Errorf("unmounting: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
