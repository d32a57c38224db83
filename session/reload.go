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

package session

// ReloadReason tags why a FullReload was chosen over an in-place patch.
type ReloadReason string

const (
	ReasonFlagsTypeChanged     ReloadReason = "FlagsTypeChanged"
	ReasonProgramTypeChanged   ReloadReason = "ProgramTypeChanged"
	ReasonDebugMetadataChanged ReloadReason = "DebugMetadataChanged"
	ReasonOptimizeFieldsChanged ReloadReason = "OptimizeFieldsChanged"
	ReasonInitChanged          ReloadReason = "InitChanged"
	ReasonHotReloadFailed      ReloadReason = "HotReloadFailed"
	ReasonTargetDisabled       ReloadReason = "TargetDisabled"
)

// ArtifactFingerprint is the subset of a compiled artifact's shape the
// verdict algorithm compares against the previous delivery. Computing these
// fields from the actual compiled bytes is outside this package's scope
// (it is a property of the compiler's output format); the supervisor
// extracts them once per successful build and passes both sides in here.
type ArtifactFingerprint struct {
	ProgramType      string // e.g. "sandbox", "element", "worker"
	FlagsDecoderHash string
	FlagsDecodeOK    bool // whether the previously supplied flags still decode under this fingerprint
	DebugMetadataHash string
	RecordFields     []string // non-nil only in optimize mode (I6)
	InitModelHash    string
}

// Verdict is the outcome of comparing two fingerprints.
type Verdict struct {
	FullReload bool
	Reason     ReloadReason
}

// patch is the zero-value "deliver an in-place patch" verdict (§4.7 step 7).
var patch = Verdict{}

// ComputeVerdict implements the §4.7 reload verdict algorithm, evaluated in
// the specified priority order.
func ComputeVerdict(previous, next ArtifactFingerprint) Verdict {
	if !next.FlagsDecodeOK {
		return Verdict{FullReload: true, Reason: ReasonFlagsTypeChanged}
	}
	if previous.ProgramType != next.ProgramType {
		return Verdict{FullReload: true, Reason: ReasonProgramTypeChanged}
	}
	if previous.DebugMetadataHash != next.DebugMetadataHash {
		return Verdict{FullReload: true, Reason: ReasonDebugMetadataChanged}
	}
	if next.RecordFields != nil && !stringSliceEqual(previous.RecordFields, next.RecordFields) {
		return Verdict{FullReload: true, Reason: ReasonOptimizeFieldsChanged}
	}
	if previous.InitModelHash != next.InitModelHash {
		return Verdict{FullReload: true, Reason: ReasonInitChanged}
	}
	return patch
}

// HotReloadFailed is the verdict recorded when the patch-runtime reports a
// runtime hot-patch failure (§4.7 step 6, §9 "exception-as-control-flow").
func HotReloadFailed() Verdict {
	return Verdict{FullReload: true, Reason: ReasonHotReloadFailed}
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
