// Copyright 2026 The concatfs Authors.
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

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/timeutil"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/schlaile/concatfs/cfg"
	"github.com/schlaile/concatfs/internal/fs"
	"github.com/schlaile/concatfs/internal/logger"
	"github.com/schlaile/concatfs/internal/metrics"
	"github.com/schlaile/concatfs/internal/mountutil"
	"github.com/schlaile/concatfs/internal/perms"
)

// mount builds the filesystem adapter, registers metrics, and performs the
// actual fuse.Mount call, then blocks until the mount is unmounted, mirroring
// gcsfuse's cmd.mountWithStorageHandle followed by mfs.Join in its RunE.
func mount(ctx context.Context, mountPoint string, c *cfg.Config) error {
	if err := logger.Init(c.Logging); err != nil {
		return fmt.Errorf("logger.Init: %w", err)
	}

	sessionID := uuid.New()
	logger.Infof("Starting mount session %s", sessionID)

	if resolved, err := yaml.Marshal(c); err == nil {
		logger.Debugf("Resolved configuration:\n%s", resolved)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	uid, gid, err := perms.MyUserAndGroup()
	if err != nil {
		return fmt.Errorf("MyUserAndGroup: %w", err)
	}

	if uid == 0 {
		fmt.Fprintln(os.Stdout, `
WARNING: concatfs does no file access checking right now and is therefore
dangerous to use as root!`)
	}

	if c.FileSystem.Uid >= 0 {
		uid = uint32(c.FileSystem.Uid)
	}
	if c.FileSystem.Gid >= 0 {
		gid = uint32(c.FileSystem.Gid)
	}

	logger.Infof("Creating a new file system rooted at %q...", c.FileSystem.SourceDir)
	server, err := fs.NewFileSystem(fs.Config{
		SourceDir: c.FileSystem.SourceDir,
		Uid:       uid,
		Gid:       gid,
		FileMode:  os.FileMode(c.FileSystem.FileMode),
		DirMode:   os.FileMode(c.FileSystem.DirMode),
		Clock:     timeutil.RealClock(),
	})
	if err != nil {
		return fmt.Errorf("fs.NewFileSystem: %w", err)
	}

	logger.Infof("Mounting file system at %q...", mountPoint)
	mfs, err := fuse.Mount(mountPoint, fuseutil.NewFileSystemServer(server), mountConfig(c))
	if err != nil {
		return fmt.Errorf("fuse.Mount: %w", err)
	}

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("MountedFileSystem.Join: %w", err)
	}
	return nil
}

// mountConfig translates cfg.Config into a fuse.MountConfig, the same
// responsibility gcsfuse's getFuseMountConfig has.
func mountConfig(c *cfg.Config) *fuse.MountConfig {
	parsedOptions := make(map[string]string)
	for _, o := range c.FileSystem.FuseOptions {
		mountutil.ParseOptions(parsedOptions, o)
	}

	mc := &fuse.MountConfig{
		FSName:               "concatfs",
		Subtype:              "concatfs",
		VolumeName:           "concatfs",
		Options:              parsedOptions,
		EnableParallelDirOps: !c.FileSystem.DisableParallelDirops,
		// Virtual files never accept writes, so write-back caching has no
		// correctness implication here; leave it at the library default.
	}

	if cfg.Rank(c.Logging.Severity) <= cfg.Rank(cfg.ERROR) {
		mc.ErrorLogger = logger.NewLegacyLogger(cfg.ERROR, "fuse: ")
	}
	if cfg.Rank(c.Logging.Severity) <= cfg.Rank(cfg.TRACE) {
		mc.DebugLogger = logger.NewLegacyLogger(cfg.TRACE, "fuse_debug: ")
	}

	return mc
}
