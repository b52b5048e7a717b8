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

// Package cmd wires the cobra/viper-bound configuration to the mount
// orchestration in mount.go, the same split gcsfuse's cmd package uses
// between root.go (flag parsing) and mount.go (the actual fuse.Mount call).
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/schlaile/concatfs/cfg"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error

	// MountConfig is the process-wide bound configuration, unmarshalled by
	// viper in initConfig once cobra has parsed flags.
	MountConfig cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "concatfs [flags] <source-dir> <mount-point>",
	Short: "Mount a directory, serving \"-concat-\" named files as the concatenation of the segments they describe",
	Long: `concatfs is a FUSE file system that passes a source directory
through to a mount point unchanged, except that any file whose basename
contains the marker "-concat-" is served as the byte-for-byte concatenation
of the file segments its contents describe, rather than as its own raw
bytes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}

		sourceDir, mountPoint, err := resolveArgs(args)
		if err != nil {
			return err
		}
		MountConfig.FileSystem.SourceDir = sourceDir

		return mount(cmd.Context(), mountPoint, &MountConfig)
	},
}

// resolveArgs canonicalizes both positional arguments to absolute paths,
// the way gcsfuse's populateArgs canonicalizes its mount point before a
// daemonizing re-exec changes the working directory out from under a
// relative path.
func resolveArgs(args []string) (sourceDir, mountPoint string, err error) {
	sourceDir, err = filepath.Abs(args[0])
	if err != nil {
		return "", "", fmt.Errorf("resolving source directory: %w", err)
	}

	mountPoint, err = filepath.Abs(args[1])
	if err != nil {
		return "", "", fmt.Errorf("resolving mount point: %w", err)
	}

	return sourceDir, mountPoint, nil
}

// Execute runs the root command, exiting the process on error the way
// gcsfuse's cmd.Execute does.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file overriding flag defaults.")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&MountConfig, viper.DecodeHook(cfg.DecodeHook()))
		return
	}

	resolved, err := filepath.Abs(cfgFile)
	if err != nil {
		configFileErr = fmt.Errorf("resolving config file path: %w", err)
		return
	}

	viper.SetConfigFile(resolved)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&MountConfig, viper.DecodeHook(cfg.DecodeHook()))
}
