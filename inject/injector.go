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

// Package inject implements the Injector (§4.6): it splices hot-reload
// hooks into a freshly compiled artifact via a fixed set of regex-guided
// search-and-replace operations, and writes a proxy stub for disabled or
// not-yet-built targets. Unlike the teacher's DOM-based HTML injection
// (which parses and re-renders a full document tree), the artifact here is
// compiled script output, so splicing is done with targeted regexes against
// known call-site patterns rather than a parse tree.
package inject

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
)

// Operation is one probe-then-replace splice. Probe must match somewhere in
// the artifact for this operation to apply; Replace is the regex that is
// actually substituted (by ReplaceAllString with With).
type Operation struct {
	Name    string
	Probe   *regexp.Regexp
	Replace *regexp.Regexp
	With    string
}

// hotReloadHook is spliced immediately before the program-constructor call
// that DefaultOperations probes for. It registers the about-to-run program
// with the patch-runtime's global registry (§9 "typed façade on the browser
// global") before handing off to the real constructor, so a later
// FullReload/Artifact delivery has something already listening.
const hotReloadHook = `window.__watchforge && window.__watchforge.register(); `

// DefaultOperations is the fixed set of splices applied to every artifact.
// The one built-in operation targets the call site a compiled module
// predictably exposes: the program constructor call, ahead of which the
// hot-reload registration hook is inserted.
var DefaultOperations = []Operation{
	{
		Name:    "program-constructor",
		Probe:   regexp.MustCompile(`_Platform_export\s*\(`),
		Replace: regexp.MustCompile(`(_Platform_export\s*\()`),
		With:    hotReloadHook + `$1`,
	},
}

// ReasonForWriting distinguishes a first write (artifact never existed) from
// an overwrite (hot-reload of an already-served artifact), per §4.6 step 4.
type ReasonForWriting string

const (
	ReasonFirstWrite ReasonForWriting = "firstWrite"
	ReasonOverwrite  ReasonForWriting = "overwrite"
)

// InjectError is returned when a probe matched but its paired replacement
// regex did not — the artifact's shape no longer matches what the injector
// expects (e.g. the compiler changed its output format).
type InjectError struct {
	Operation      string
	DiagnosticPath string
}

func (e *InjectError) Error() string {
	return fmt.Sprintf("inject: operation %q matched its probe but not its replacement; diagnostic written to %s", e.Operation, e.DiagnosticPath)
}

// ReadOutputError wraps a failure to read the compiled artifact.
type ReadOutputError struct{ Cause error }

func (e *ReadOutputError) Error() string { return fmt.Sprintf("inject: reading artifact: %v", e.Cause) }

// WriteOutputError wraps a failure to write the transformed artifact back.
type WriteOutputError struct {
	Reason ReasonForWriting
	Cause  error
}

func (e *WriteOutputError) Error() string {
	return fmt.Sprintf("inject: writing artifact (%s): %v", e.Reason, e.Cause)
}

// WriteProxyOutputError wraps a failure to write the proxy stub.
type WriteProxyOutputError struct{ Cause error }

func (e *WriteProxyOutputError) Error() string {
	return fmt.Sprintf("inject: writing proxy stub: %v", e.Cause)
}

// Injector performs the splice-and-write pipeline for one target.
type Injector struct {
	Operations     []Operation
	DiagnosticsDir string // overrides xdg.CacheHome/watchforge/diagnostics for tests
}

// New returns an Injector configured with DefaultOperations and an
// xdg-cache-relative diagnostics directory.
func New() *Injector {
	return &Injector{Operations: DefaultOperations}
}

// Inject reads artifactPath, applies every operation whose probe matches,
// and writes the result back. existed indicates whether the artifact already
// existed before this build (selects the WriteOutputError reason).
func (inj *Injector) Inject(artifactPath string, existed bool) error {
	raw, err := os.ReadFile(artifactPath)
	if err != nil {
		return &ReadOutputError{Cause: err}
	}

	code := string(raw)
	for _, op := range inj.Operations {
		if !op.Probe.MatchString(code) {
			continue
		}
		if !op.Replace.MatchString(code) {
			path, derr := inj.writeDiagnostic(op.Name, code)
			if derr != nil {
				path = derr.Error()
			}
			return &InjectError{Operation: op.Name, DiagnosticPath: path}
		}
		code = op.Replace.ReplaceAllString(code, op.With)
	}

	reason := ReasonOverwrite
	if !existed {
		reason = ReasonFirstWrite
	}

	info, statErr := os.Stat(artifactPath)
	mode := os.FileMode(0644)
	if statErr == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(artifactPath, []byte(code), mode); err != nil {
		return &WriteOutputError{Reason: reason, Cause: err}
	}
	return nil
}

// WriteProxy writes a small stub artifact that connects to the supervisor's
// websocket endpoint and triggers a full reload once a real build exists
// (§4.6 step 5). The supervisor does not call it: disabled targets and
// targets with no successful build yet get no stub written.
func (inj *Injector) WriteProxy(artifactPath string) error {
	stub := fmt.Sprintf(`// watchforge proxy stub — generated %s
(function () {
  var target = new URL(document.currentScript.src).searchParams.get("targetName");
  var proto = location.protocol === "https:" ? "wss:" : "ws:";
  var ws = new WebSocket(proto + "//" + location.host + "/?targetName=" + target);
  ws.onmessage = function () { location.reload(); };
})();
`, time.Now().UTC().Format(time.RFC3339))

	if err := os.WriteFile(artifactPath, []byte(stub), 0644); err != nil {
		return &WriteProxyOutputError{Cause: err}
	}
	return nil
}

func (inj *Injector) writeDiagnostic(opName, code string) (string, error) {
	dir := inj.DiagnosticsDir
	if dir == "" {
		dir = filepath.Join(xdg.CacheHome, "watchforge", "diagnostics")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.js", opName, time.Now().UnixNano()))
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return "", err
	}
	return path, nil
}
