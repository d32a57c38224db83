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

package preferences_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.watchforge.dev/watchforge/preferences"
)

func TestLoadMissingReturnsDefault(t *testing.T) {
	prefs := preferences.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, 0, prefs.Port)
	assert.NotNil(t, prefs.Targets)
}

func TestLoadCorruptIgnoresAndStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	prefs := preferences.Load(path)
	assert.Equal(t, preferences.Default(), prefs)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	prefs := &preferences.Preferences{
		Port: 8765,
		Targets: map[string]preferences.TargetPreference{
			"Html": {CompilationMode: "debug"},
		},
	}
	require.NoError(t, preferences.Save(path, prefs))

	loaded := preferences.Load(path)
	assert.Equal(t, prefs, loaded)
}
