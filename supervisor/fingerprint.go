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

package supervisor

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"

	"go.watchforge.dev/watchforge/session"
)

// These locate the same call-site shapes inject.DefaultOperations probes for
// (§4.6): the fingerprint is read from a few recognizable regions of the
// compiled artifact rather than a full parse, matching that package's
// regex-guided convention.
var (
	programTypePattern  = regexp.MustCompile(`_Platform_(worker|sandbox|element|document|application)\s*\(`)
	flagsDecoderPattern = regexp.MustCompile(`_Platform_export\s*\(([\s\S]*?)\)\s*;`)
	debugMetadataPattern = regexp.MustCompile(`_Debugger_\w+[\s\S]{0,200}`)
	initModelPattern    = regexp.MustCompile(`\$main\$init[\s\S]{0,200}`)
	recordFieldPattern  = regexp.MustCompile(`\.([A-Za-z_$][\w$]*)\s*=\s*`)
)

// deriveFingerprint reads the §4.7 comparison fields out of a freshly
// injected artifact's bytes. recordFields carries the current build's
// optimize-mode field set (nil outside optimize mode, per I6).
func deriveFingerprint(code string, recordFields []string) session.ArtifactFingerprint {
	fp := session.ArtifactFingerprint{RecordFields: recordFields}

	if m := programTypePattern.FindStringSubmatch(code); m != nil {
		fp.ProgramType = m[1]
	}

	if m := flagsDecoderPattern.FindStringSubmatch(code); m != nil {
		fp.FlagsDecoderHash = hashRegion(m[1])
		fp.FlagsDecodeOK = true
	}
	// No export call site at all means the flags decoder this target used to
	// expose is gone; FlagsDecodeOK stays false and ComputeVerdict forces a
	// FullReload (§4.7 step 1).

	if m := debugMetadataPattern.FindString(code); m != "" {
		fp.DebugMetadataHash = hashRegion(m)
	}

	if m := initModelPattern.FindString(code); m != "" {
		fp.InitModelHash = hashRegion(m)
	}

	return fp
}

// extractRecordFields scans an optimize-mode artifact for the property names
// assigned with `.name =` (I6). A rename between builds shows up
// as a changed set here, which ComputeVerdict treats as OptimizeFieldsChanged.
func extractRecordFields(code string) map[string]bool {
	matches := recordFieldPattern.FindAllStringSubmatch(code, -1)
	if len(matches) == 0 {
		return nil
	}
	fields := make(map[string]bool, len(matches))
	for _, m := range matches {
		fields[m[1]] = true
	}
	return fields
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func hashRegion(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
