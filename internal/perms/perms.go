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

// Package perms contains small helpers around process identity, grounded
// on gcsfuse's internal/perms package.
package perms

import "os"

// MyUserAndGroup returns the current process's UID and GID, for use as the
// default owner of every passthrough inode when the user has not
// overridden --uid/--gid.
func MyUserAndGroup() (uid uint32, gid uint32, err error) {
	return uint32(os.Getuid()), uint32(os.Getgid()), nil
}
