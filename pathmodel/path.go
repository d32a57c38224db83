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

// Package pathmodel provides the typed path primitives shared by the
// project resolver, the watcher adapter and the output state machine:
// absolute paths, symlink-resolved real paths, longest-common-ancestor and
// nearest-ancestor-file lookups.
package pathmodel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AbsolutePath is a string known to be absolute and filepath.Clean-normalized.
// Two AbsolutePath values are equal iff their underlying strings are equal.
type AbsolutePath string

// RealPath is an AbsolutePath with every symlink component resolved.
type RealPath string

// NewAbsolutePath resolves p against base (if p is relative) and normalizes
// the result. base is ignored when p is already absolute.
func NewAbsolutePath(base, p string) (AbsolutePath, error) {
	if p == "" {
		return "", fmt.Errorf("pathmodel: empty path")
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return AbsolutePath(filepath.Clean(p)), nil
}

// Resolve computes the RealPath for an AbsolutePath by resolving symlinks.
// ErrNotFound-equivalent failures are surfaced via os.IsNotExist so callers
// can distinguish "missing file" from other I/O errors.
func (a AbsolutePath) Resolve() (RealPath, error) {
	real, err := filepath.EvalSymlinks(string(a))
	if err != nil {
		return "", err
	}
	return RealPath(filepath.Clean(real)), nil
}

// String implements fmt.Stringer.
func (a AbsolutePath) String() string { return string(a) }

// String implements fmt.Stringer.
func (r RealPath) String() string { return string(r) }

// Dir returns the parent directory as an AbsolutePath.
func (a AbsolutePath) Dir() AbsolutePath {
	return AbsolutePath(filepath.Dir(string(a)))
}

// IsAncestorOf reports whether a is an ancestor directory of (or equal to) other.
func (a AbsolutePath) IsAncestorOf(other AbsolutePath) bool {
	rel, err := filepath.Rel(string(a), string(other))
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "..")
}

// LongestCommonAncestor returns the deepest directory that is an ancestor of
// (or equal to) every path given. Returns an error if the paths share no
// common root (e.g. different drives on Windows, or an empty input set).
func LongestCommonAncestor(paths ...AbsolutePath) (AbsolutePath, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("pathmodel: longest common ancestor of zero paths")
	}

	segments := make([][]string, len(paths))
	for i, p := range paths {
		clean := filepath.Clean(string(p))
		segments[i] = splitPath(clean)
	}

	common := segments[0]
	for _, segs := range segments[1:] {
		common = commonPrefix(common, segs)
		if len(common) == 0 {
			return "", fmt.Errorf("pathmodel: paths share no common root")
		}
	}

	joined := filepath.Join(common...)
	if filepath.IsAbs(string(paths[0])) && !filepath.IsAbs(joined) {
		joined = string(filepath.Separator) + joined
	}
	return AbsolutePath(filepath.Clean(joined)), nil
}

func splitPath(p string) []string {
	var out []string
	for {
		dir, file := filepath.Split(p)
		dir = strings.TrimSuffix(dir, string(filepath.Separator))
		if file != "" {
			out = append([]string{file}, out...)
		}
		if dir == p || dir == "" {
			if dir != "" {
				out = append([]string{dir}, out...)
			}
			break
		}
		p = dir
	}
	return out
}

func commonPrefix(a, b []string) []string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// NearestAncestorFile walks upward from startDir looking for a file named
// fileName, returning the directory containing it. Returns os.ErrNotExist
// (wrapped) if no ancestor (including startDir) contains the file before
// reaching the filesystem root.
func NearestAncestorFile(startDir AbsolutePath, fileName string) (AbsolutePath, error) {
	current := string(startDir)
	for {
		candidate := filepath.Join(current, fileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return AbsolutePath(current), nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("pathmodel: %s not found above %s: %w", fileName, startDir, os.ErrNotExist)
		}
		current = parent
	}
}
