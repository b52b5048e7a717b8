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

// Package cfg holds the mount-time configuration, bound from command-line
// flags (and optionally a YAML config file) the way gcsfuse's own cfg
// package binds its Config through viper.
package cfg

import (
	"strconv"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the top-level configuration, unmarshalled by viper from bound
// flags and (optionally) a YAML config file.
type Config struct {
	FileSystem FileSystemConfig `mapstructure:"file-system" yaml:"file-system"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// FileSystemConfig controls how passthrough inodes are presented.
type FileSystemConfig struct {
	// SourceDir is the canonicalized directory being exported through the
	// mount point. It is populated by cmd/root.go from the first positional
	// argument, not bound as a flag.
	SourceDir string `mapstructure:"-" yaml:"-"`

	// Uid/Gid override the inode owner reported to the kernel. A negative
	// value means "use the invoking process's own uid/gid", mirroring
	// gcsfuse's FileSystemConfig.Uid/Gid sentinel convention.
	Uid int `mapstructure:"uid" yaml:"uid"`
	Gid int `mapstructure:"gid" yaml:"gid"`

	FileMode Octal `mapstructure:"file-mode" yaml:"file-mode"`
	DirMode  Octal `mapstructure:"dir-mode" yaml:"dir-mode"`

	// FuseOptions carries repeated "-o name=value" mount options verbatim,
	// parsed by internal/mountutil.
	FuseOptions []string `mapstructure:"fuse-options" yaml:"fuse-options"`

	// DisableParallelDirops disables fuse.MountConfig.EnableParallelDirOps.
	DisableParallelDirops bool `mapstructure:"disable-parallel-dirops" yaml:"disable-parallel-dirops"`

	// Foreground is bound from --foreground but not read by the mount path:
	// the process never daemonizes and stays attached to the terminal
	// whether or not it is set.
	Foreground bool `mapstructure:"foreground" yaml:"foreground"`
}

// LoggingConfig controls internal/logger's behavior.
type LoggingConfig struct {
	Severity string `mapstructure:"severity" yaml:"severity"`
	Format   string `mapstructure:"format" yaml:"format"`
	FilePath string `mapstructure:"file-path" yaml:"file-path"`

	LogRotate LogRotateConfig `mapstructure:"log-rotate" yaml:"log-rotate"`
}

// LogRotateConfig configures gopkg.in/natefinch/lumberjack.v2 rotation for
// file-backed logging.
type LogRotateConfig struct {
	MaxFileSizeMB   int  `mapstructure:"max-file-size-mb" yaml:"max-file-size-mb"`
	BackupFileCount int  `mapstructure:"backup-file-count" yaml:"backup-file-count"`
	Compress        bool `mapstructure:"compress" yaml:"compress"`
}

// DefaultLogRotateConfig mirrors the defaults gcsfuse ships for its own
// lumberjack-backed file logging.
func DefaultLogRotateConfig() LogRotateConfig {
	return LogRotateConfig{
		MaxFileSizeMB:   512,
		BackupFileCount: 10,
		Compress:        false,
	}
}

// Octal is the datatype for params such as file-mode and dir-mode which
// accept a base-8 value, the same convention gcsfuse's cfg.Octal uses.
type Octal int

func (o *Octal) UnmarshalText(text []byte) error {
	v, err := strconv.ParseInt(string(text), 8, 32)
	if err != nil {
		return err
	}
	*o = Octal(v)
	return nil
}

func (o Octal) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(o), 8)), nil
}

// BindFlags registers all mount flags on flagSet and binds each to its
// viper key, so that a later viper.Unmarshal(&Config{}) picks up either the
// flag value or a config-file override.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.IntP("uid", "", -1, "UID owning all inodes; -1 uses the invoking user's own UID.")

	err = viper.BindPFlag("file-system.uid", flagSet.Lookup("uid"))
	if err != nil {
		return err
	}

	flagSet.IntP("gid", "", -1, "GID owning all inodes; -1 uses the invoking user's own GID.")

	err = viper.BindPFlag("file-system.gid", flagSet.Lookup("gid"))
	if err != nil {
		return err
	}

	flagSet.VarP(newOctalValue(0), "file-mode", "", "Permission bits reported for files, in octal; 0 reports the backing file's own bits.")

	err = viper.BindPFlag("file-system.file-mode", flagSet.Lookup("file-mode"))
	if err != nil {
		return err
	}

	flagSet.VarP(newOctalValue(0), "dir-mode", "", "Permission bits reported for directories, in octal; 0 reports the backing directory's own bits.")

	err = viper.BindPFlag("file-system.dir-mode", flagSet.Lookup("dir-mode"))
	if err != nil {
		return err
	}

	flagSet.StringArrayP("o", "o", nil, "Additional -o mount option, may be repeated.")

	err = viper.BindPFlag("file-system.fuse-options", flagSet.Lookup("o"))
	if err != nil {
		return err
	}

	flagSet.BoolP("disable-parallel-dirops", "", false, "Disable parallel LookUpInode/ReadDir dispatch from the kernel.")

	err = viper.BindPFlag("file-system.disable-parallel-dirops", flagSet.Lookup("disable-parallel-dirops"))
	if err != nil {
		return err
	}

	flagSet.BoolP("foreground", "f", false, "Accepted but has no effect: concatfs never daemonizes and always stays attached to the terminal.")

	err = viper.BindPFlag("file-system.foreground", flagSet.Lookup("foreground"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", INFO, "One of TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")

	err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "text", "One of text or json.")

	err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to a log file; empty logs to stderr.")

	err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file"))
	if err != nil {
		return err
	}

	return nil
}

// octalValue adapts Octal to pflag.Value so it can be parsed directly from
// a flag's textual argument.
type octalValue Octal

func newOctalValue(v Octal) *octalValue {
	o := octalValue(v)
	return &o
}

func (o *octalValue) Set(s string) error {
	v, err := strconv.ParseInt(s, 8, 32)
	if err != nil {
		return err
	}
	*o = octalValue(v)
	return nil
}

func (o *octalValue) String() string { return strconv.FormatInt(int64(*o), 8) }
func (o *octalValue) Type() string   { return "octal" }
