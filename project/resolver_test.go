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

package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.watchforge.dev/watchforge/output"
	"go.watchforge.dev/watchforge/project"
)

func writeManifestTree(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "watchforge.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "Html.elm"), []byte("module Html exposing (main)"), 0644))
}

func TestResolveHappyPath(t *testing.T) {
	root := t.TempDir()
	writeManifestTree(t, root)

	cfg := &project.Config{
		Targets: map[string]project.TargetConfig{
			"Html": {Inputs: []string{"src/Html.elm"}, Output: "build/Html.js"},
		},
	}

	p, err := project.Resolve(cfg, root, "watchforge.json", nil)
	require.NoError(t, err)
	assert.Empty(t, p.ResolutionErrors)
	assert.Len(t, p.Groups(), 1)

	outputs := p.AllOutputs()
	require.Len(t, outputs, 1)
	assert.Equal(t, "Html", outputs[0].TargetName)
}

func TestResolveDuplicateOutputs(t *testing.T) {
	root := t.TempDir()
	writeManifestTree(t, root)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "Other.elm"), []byte("x"), 0644))

	cfg := &project.Config{
		Targets: map[string]project.TargetConfig{
			"A": {Inputs: []string{"src/Html.elm"}, Output: "build/x.js"},
			"B": {Inputs: []string{"src/Other.elm"}, Output: "./build/x.js"},
		},
	}

	_, err := project.Resolve(cfg, root, "watchforge.json", nil)
	require.Error(t, err)
	var dup *project.DuplicateOutputs
	assert.ErrorAs(t, err, &dup)
}

func TestResolveInputsNotFound(t *testing.T) {
	root := t.TempDir()
	writeManifestTree(t, root)

	cfg := &project.Config{
		Targets: map[string]project.TargetConfig{
			"Html":    {Inputs: []string{"src/Html.elm"}, Output: "build/Html.js"},
			"Missing": {Inputs: []string{"src/Missing.elm"}, Output: "build/Missing.js"},
		},
	}

	p, err := project.Resolve(cfg, root, "watchforge.json", nil)
	require.NoError(t, err)
	require.Len(t, p.ResolutionErrors, 1)
	var notFound *project.InputsNotFound
	assert.ErrorAs(t, p.ResolutionErrors[0].Err, &notFound)

	// the other target still resolved successfully.
	assert.Len(t, p.AllOutputs(), 1)
}

func TestResolveDisabledByFilter(t *testing.T) {
	root := t.TempDir()
	writeManifestTree(t, root)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "Other.elm"), []byte("x"), 0644))

	cfg := &project.Config{
		Targets: map[string]project.TargetConfig{
			"Html":  {Inputs: []string{"src/Html.elm"}, Output: "build/Html.js"},
			"Other": {Inputs: []string{"src/Other.elm"}, Output: "build/Other.js"},
		},
	}

	p, err := project.Resolve(cfg, root, "watchforge.json", []string{"Html"})
	require.NoError(t, err)
	assert.Len(t, p.AllOutputs(), 1)
	assert.Len(t, p.DisabledOutputs, 1)
}

func TestResolveManifestNotFound(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "watchforge.json"), []byte("{}"), 0644))

	orphan := filepath.Join(outside, "Orphan.elm")
	require.NoError(t, os.WriteFile(orphan, []byte("x"), 0644))

	cfg := &project.Config{
		Targets: map[string]project.TargetConfig{
			"Orphan": {Inputs: []string{orphan}, Output: "build/Orphan.js"},
		},
	}

	p, err := project.Resolve(cfg, root, "watchforge.json", nil)
	require.NoError(t, err)
	require.Len(t, p.ResolutionErrors, 1)
	var notFound *project.ManifestNotFound
	assert.ErrorAs(t, p.ResolutionErrors[0].Err, &notFound)
}

func TestProjectSnapshotKeyedByTargetName(t *testing.T) {
	root := t.TempDir()
	writeManifestTree(t, root)

	cfg := &project.Config{
		Targets: map[string]project.TargetConfig{
			"Html": {Inputs: []string{"src/Html.elm"}, Output: "build/Html.js"},
		},
	}

	p, err := project.Resolve(cfg, root, "watchforge.json", nil)
	require.NoError(t, err)

	snap := p.Snapshot()
	require.Contains(t, snap, "Html")
	assert.Equal(t, output.StatusNotWrittenToDisk, snap["Html"].Tag)
	assert.Equal(t, "Html", snap["Html"].TargetName)
}
