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
	"fmt"

	"go.watchforge.dev/watchforge/pathmodel"
)

// InputsNotFound reports input strings whose realpath resolution failed
// with a missing-file error.
type InputsNotFound struct{ Inputs []string }

func (e *InputsNotFound) Error() string {
	return fmt.Sprintf("inputs not found: %v", e.Inputs)
}

// InputsFailedToResolve reports input strings that failed realpath
// resolution for a reason other than not-found (e.g. permission denied).
type InputsFailedToResolve struct {
	Inputs []string
	Causes []error
}

func (e *InputsFailedToResolve) Error() string {
	return fmt.Sprintf("inputs failed to resolve: %v", e.Inputs)
}

// DuplicateInputs reports two or more configured input strings resolving
// to the same physical file within a single target.
type DuplicateInputs struct{ Real pathmodel.RealPath }

func (e *DuplicateInputs) Error() string {
	return fmt.Sprintf("duplicate input %s", e.Real)
}

// ManifestNotFound reports that no ancestor of an input carries the
// configured manifest file name.
type ManifestNotFound struct{ Input pathmodel.RealPath }

func (e *ManifestNotFound) Error() string {
	return fmt.Sprintf("no manifest found above %s", e.Input)
}

// NonUniqueManifests reports a target whose inputs resolve to more than
// one distinct ProjectManifestPath.
type NonUniqueManifests struct{ Manifests []pathmodel.AbsolutePath }

func (e *NonUniqueManifests) Error() string {
	return fmt.Sprintf("inputs span multiple manifests: %v", e.Manifests)
}

// DuplicateOutputs is a fatal top-level error: two or more configured
// targets resolve to the same OutputPath.
type DuplicateOutputs struct{ Paths []string }

func (e *DuplicateOutputs) Error() string {
	return fmt.Sprintf("duplicate output paths: %v", e.Paths)
}

// NoCommonRoot is a fatal top-level error: the watch-config file and the
// resolved manifests share no common ancestor directory.
type NoCommonRoot struct{ Cause error }

func (e *NoCommonRoot) Error() string {
	return fmt.Sprintf("no common root: %v", e.Cause)
}

// errorPriority ranks a per-target resolution error for the §4.1 ordering
// rule: InputsNotFound > InputsFailedToResolve > DuplicateInputs >
// ManifestNotFound > NonUniqueManifests.
func errorPriority(err error) int {
	switch err.(type) {
	case *InputsNotFound:
		return 0
	case *InputsFailedToResolve:
		return 1
	case *DuplicateInputs:
		return 2
	case *ManifestNotFound:
		return 3
	case *NonUniqueManifests:
		return 4
	default:
		return 5
	}
}
