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

package inject_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.watchforge.dev/watchforge/inject"
)

func TestInjectAppliesMatchingOperation(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "Main.js")
	original := "_Platform_export({Main:{init:init}});"
	require.NoError(t, os.WriteFile(artifact, []byte(original), 0644))

	inj := inject.New()
	err := inj.Inject(artifact, true)
	require.NoError(t, err)

	out, err := os.ReadFile(artifact)
	require.NoError(t, err)
	assert.Contains(t, string(out), "_Platform_export(")
	assert.Contains(t, string(out), "__watchforge")
	assert.NotEqual(t, original, string(out), "Inject must splice the hot-reload hook in, not leave the artifact unchanged")
	assert.Less(t, strings.Index(string(out), "__watchforge"), strings.Index(string(out), "_Platform_export("),
		"the hook must be spliced ahead of the program constructor call")
}

func TestInjectSkipsNonMatchingArtifact(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "Main.js")
	require.NoError(t, os.WriteFile(artifact, []byte("console.log('no hooks here')"), 0644))

	inj := inject.New()
	err := inj.Inject(artifact, true)
	require.NoError(t, err)
}

func TestInjectReadOutputError(t *testing.T) {
	inj := inject.New()
	err := inj.Inject(filepath.Join(t.TempDir(), "missing.js"), false)
	require.Error(t, err)
	var rerr *inject.ReadOutputError
	assert.ErrorAs(t, err, &rerr)
}

func TestInjectWritesDiagnosticOnBrokenReplacement(t *testing.T) {
	diagDir := t.TempDir()
	dir := t.TempDir()
	artifact := filepath.Join(dir, "Main.js")
	require.NoError(t, os.WriteFile(artifact, []byte("MARKER but no tail"), 0644))

	inj := &inject.Injector{
		DiagnosticsDir: diagDir,
		Operations: []inject.Operation{
			{
				Name:    "broken",
				Probe:   regexp.MustCompile(`MARKER`),
				Replace: regexp.MustCompile(`NEVER_MATCHES`),
				With:    "x",
			},
		},
	}

	err := inj.Inject(artifact, true)
	require.Error(t, err)
	var ierr *inject.InjectError
	require.ErrorAs(t, err, &ierr)
	assert.FileExists(t, ierr.DiagnosticPath)
}

func TestWriteProxy(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "Main.js")

	inj := inject.New()
	require.NoError(t, inj.WriteProxy(artifact))

	out, err := os.ReadFile(artifact)
	require.NoError(t, err)
	assert.Contains(t, string(out), "WebSocket")
}
