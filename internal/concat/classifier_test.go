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

package concat_test

import (
	"testing"

	"github.com/schlaile/concatfs/internal/concat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ClassifierTest struct {
	suite.Suite
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierTest))
}

func (t *ClassifierTest) TestMatchesBasenameContainingMarker() {
	assert.True(t.T(), concat.IsVirtual("bigmovie-concat-file.MTS"))
	assert.True(t.T(), concat.IsVirtual("/a/b/bigmovie-concat-file.MTS"))
	assert.True(t.T(), concat.IsVirtual("m-concat-x"))
}

func (t *ClassifierTest) TestIgnoresMarkerInDirectoryComponent() {
	assert.False(t.T(), concat.IsVirtual("/a/x-concat-y/file.MTS"))
}

func (t *ClassifierTest) TestNoMarker() {
	assert.False(t.T(), concat.IsVirtual("/a/b/file.MTS"))
	assert.False(t.T(), concat.IsVirtual(""))
}

func (t *ClassifierTest) TestDependsOnlyOnBasename() {
	for _, p := range []string{
		"a-concat-b",
		"/a-concat-b",
		"/x/y/a-concat-b",
		"./a-concat-b",
	} {
		assert.True(t.T(), concat.IsVirtual(p), "path %q", p)
	}
}
