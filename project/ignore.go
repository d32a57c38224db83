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

package project

import (
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// loadIgnore reads a ".gitignore" at configDir, if present (§4.1
// expansion). A missing file is not an error: projects without one simply
// ignore nothing.
func loadIgnore(configDir string) (*ignore.GitIgnore, error) {
	path := filepath.Join(configDir, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ignore.CompileIgnoreFile(path)
}

// matches reports whether rel (relative to the ignore file's directory)
// is excluded. A nil matcher (no .gitignore present) excludes nothing.
func matchesIgnore(gi *ignore.GitIgnore, rel string) bool {
	if gi == nil {
		return false
	}
	return gi.MatchesPath(rel)
}
