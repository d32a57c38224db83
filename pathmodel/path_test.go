/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package pathmodel_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.watchforge.dev/watchforge/pathmodel"
)

func TestNewAbsolutePath(t *testing.T) {
	t.Run("relative path resolved against base", func(t *testing.T) {
		p, err := pathmodel.NewAbsolutePath("/a/b", "c.elm")
		require.NoError(t, err)
		assert.Equal(t, pathmodel.AbsolutePath("/a/b/c.elm"), p)
	})

	t.Run("absolute path ignores base", func(t *testing.T) {
		p, err := pathmodel.NewAbsolutePath("/a/b", "/c/d.elm")
		require.NoError(t, err)
		assert.Equal(t, pathmodel.AbsolutePath("/c/d.elm"), p)
	})

	t.Run("empty path is an error", func(t *testing.T) {
		_, err := pathmodel.NewAbsolutePath("/a/b", "")
		assert.Error(t, err)
	})
}

func TestResolveSymlink(t *testing.T) {
	tmp := t.TempDir()
	real := filepath.Join(tmp, "real.elm")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0644))

	link := filepath.Join(tmp, "link.elm")
	require.NoError(t, os.Symlink(real, link))

	abs, err := pathmodel.NewAbsolutePath(tmp, "link.elm")
	require.NoError(t, err)

	resolved, err := abs.Resolve()
	require.NoError(t, err)

	expected, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)
	assert.Equal(t, pathmodel.RealPath(expected), resolved)
}

func TestResolveMissingFile(t *testing.T) {
	tmp := t.TempDir()
	abs, err := pathmodel.NewAbsolutePath(tmp, "missing.elm")
	require.NoError(t, err)

	_, err = abs.Resolve()
	assert.True(t, os.IsNotExist(err))
}

func TestLongestCommonAncestor(t *testing.T) {
	t.Run("common parent directory", func(t *testing.T) {
		lca, err := pathmodel.LongestCommonAncestor(
			pathmodel.AbsolutePath("/a/b/c/d.elm"),
			pathmodel.AbsolutePath("/a/b/e/f.elm"),
			pathmodel.AbsolutePath("/a/b/g.json"),
		)
		require.NoError(t, err)
		assert.Equal(t, pathmodel.AbsolutePath("/a/b"), lca)
	})

	t.Run("single path returns itself", func(t *testing.T) {
		lca, err := pathmodel.LongestCommonAncestor(pathmodel.AbsolutePath("/a/b/c"))
		require.NoError(t, err)
		assert.Equal(t, pathmodel.AbsolutePath("/a/b/c"), lca)
	})

	t.Run("no paths is an error", func(t *testing.T) {
		_, err := pathmodel.LongestCommonAncestor()
		assert.Error(t, err)
	})

	t.Run("disjoint roots", func(t *testing.T) {
		_, err := pathmodel.LongestCommonAncestor(
			pathmodel.AbsolutePath("/a/b"),
			pathmodel.AbsolutePath("/x/y"),
		)
		assert.Error(t, err)
	})
}

func TestNearestAncestorFile(t *testing.T) {
	tmp := t.TempDir()
	manifestDir := filepath.Join(tmp, "pkg")
	srcDir := filepath.Join(manifestDir, "src", "nested")
	require.NoError(t, os.MkdirAll(srcDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(manifestDir, "project.json"), []byte("{}"), 0644))

	t.Run("finds manifest from nested source dir", func(t *testing.T) {
		found, err := pathmodel.NearestAncestorFile(pathmodel.AbsolutePath(srcDir), "project.json")
		require.NoError(t, err)
		assert.Equal(t, pathmodel.AbsolutePath(manifestDir), found)
	})

	t.Run("missing manifest returns not-exist", func(t *testing.T) {
		other := filepath.Join(tmp, "elsewhere")
		require.NoError(t, os.MkdirAll(other, 0755))
		_, err := pathmodel.NearestAncestorFile(pathmodel.AbsolutePath(other), "project.json")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
