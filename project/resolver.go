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

// Package project implements the ProjectResolver (§4.1): it turns a watch
// configuration document into a Project, grouping enabled targets under the
// nearest-ancestor manifest each target's inputs share, and recording
// per-target resolution errors without aborting the whole run.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"go.watchforge.dev/watchforge/output"
	"go.watchforge.dev/watchforge/pathmodel"
	"go.watchforge.dev/watchforge/preferences"
)

// InputPath is a single resolved compiler input (§3).
type InputPath struct {
	Configured     pathmodel.AbsolutePath
	Real           pathmodel.RealPath
	OriginalString string
}

// Target is one configured compile target (§3).
type Target struct {
	Name             string
	OutputPath       pathmodel.AbsolutePath
	OutputConfigured string
	Inputs           []string
}

// ResolutionError is one entry of Project.ResolutionErrors.
type ResolutionError struct {
	OutputPath      pathmodel.AbsolutePath
	CompilationMode output.CompilationMode
	Err             error
}

// Postprocess is the optional shared postprocess command line.
type Postprocess struct {
	Argv []string
}

// orderedGroup is one manifest's targets, insertion-ordered.
type orderedGroup struct {
	manifest pathmodel.AbsolutePath
	order    []pathmodel.AbsolutePath // OutputPath insertion order
	outputs  map[pathmodel.AbsolutePath]*output.OutputState
}

// Project is the immutable result of a successful resolution (§3).
type Project struct {
	WatchRoot        pathmodel.AbsolutePath
	DisabledOutputs  map[pathmodel.AbsolutePath]bool
	DisabledNames    []string
	ResolutionErrors []ResolutionError
	MaxParallel      int
	Postprocess      *Postprocess

	manifestOrder []pathmodel.AbsolutePath
	groups        map[pathmodel.AbsolutePath]*orderedGroup

	ignore     *ignore.GitIgnore
	ignoreRoot string
}

// IsIgnored reports whether real falls under a .gitignore pattern rooted at
// the watch configuration directory (§4.1 expansion). A project with no
// .gitignore ignores nothing.
func (p *Project) IsIgnored(real pathmodel.RealPath) bool {
	if p.ignore == nil {
		return false
	}
	rel, err := filepath.Rel(p.ignoreRoot, string(real))
	if err != nil {
		return false
	}
	return matchesIgnore(p.ignore, rel)
}

// Groups returns the manifest groups in insertion order.
func (p *Project) Groups() []pathmodel.AbsolutePath { return p.manifestOrder }

// Outputs returns the OutputStates belonging to a manifest group, in
// insertion order.
func (p *Project) Outputs(manifest pathmodel.AbsolutePath) []*output.OutputState {
	g, ok := p.groups[manifest]
	if !ok {
		return nil
	}
	out := make([]*output.OutputState, 0, len(g.order))
	for _, op := range g.order {
		out = append(out, g.outputs[op])
	}
	return out
}

// AllOutputs returns every enabled OutputState across every group, in
// manifest-then-insertion order.
func (p *Project) AllOutputs() []*output.OutputState {
	var out []*output.OutputState
	for _, m := range p.manifestOrder {
		out = append(out, p.Outputs(m)...)
	}
	return out
}

// EnabledNames returns the target names of every enabled output, in
// manifest-then-insertion order.
func (p *Project) EnabledNames() []string {
	outs := p.AllOutputs()
	names := make([]string, 0, len(outs))
	for _, o := range outs {
		names = append(names, o.TargetName)
	}
	return names
}

// Snapshot returns a read-only copy of every enabled output's current
// status, keyed by target name (§3 expansion). The copies share no state
// with the live *output.OutputState values the supervisor mutates.
func (p *Project) Snapshot() map[string]output.Snapshot {
	outs := p.AllOutputs()
	snap := make(map[string]output.Snapshot, len(outs))
	for _, o := range outs {
		snap[o.TargetName] = o.Snapshot()
	}
	return snap
}

// ApplyPreferences applies a per-target CompilationMode persisted by a prior
// run back onto a freshly resolved Project (§6.2): without this, Resolve's
// hardcoded ModeStandard default would silently discard whatever mode a
// session last switched a target to.
func (p *Project) ApplyPreferences(prefs *preferences.Preferences) {
	if prefs == nil {
		return
	}
	for _, o := range p.AllOutputs() {
		tp, ok := prefs.Targets[o.TargetName]
		if !ok {
			continue
		}
		switch output.CompilationMode(tp.CompilationMode) {
		case output.ModeDebug, output.ModeStandard, output.ModeOptimize:
			o.CompilationMode = output.CompilationMode(tp.CompilationMode)
		}
	}
}

// defaultManifestName is the manifest file name that Resolve and Classifier
// look up with NearestAncestorFile when their caller passes an empty name.
const defaultManifestName = "watchforge.json"

// Resolve implements §4.1. configDir is the directory containing the watch
// configuration file; filters is the CLI's positional substring filter list
// (empty means "every target enabled").
func Resolve(cfg *Config, configDir string, manifestName string, filters []string) (*Project, error) {
	if manifestName == "" {
		manifestName = defaultManifestName
	}

	names := make([]string, 0, len(cfg.Targets))
	for name := range cfg.Targets {
		names = append(names, name)
	}
	sort.Strings(names)

	outputCandidates := make(map[pathmodel.AbsolutePath][]string) // OutputPath -> configured strings
	outputPaths := make(map[string]pathmodel.AbsolutePath)        // target name -> OutputPath

	for _, name := range names {
		tc := cfg.Targets[name]
		abs, err := pathmodel.NewAbsolutePath(configDir, tc.Output)
		if err != nil {
			return nil, fmt.Errorf("project: target %q: %w", name, err)
		}
		outputCandidates[abs] = append(outputCandidates[abs], tc.Output)
		outputPaths[name] = abs
	}

	var dupPaths []string
	for _, configured := range outputCandidates {
		if len(configured) >= 2 {
			dupPaths = append(dupPaths, configured...)
		}
	}
	if len(dupPaths) > 0 {
		sort.Strings(dupPaths)
		return nil, &DuplicateOutputs{Paths: dupPaths}
	}

	gi, err := loadIgnore(configDir)
	if err != nil {
		return nil, fmt.Errorf("project: loading .gitignore: %w", err)
	}

	p := &Project{
		DisabledOutputs:  make(map[pathmodel.AbsolutePath]bool),
		ResolutionErrors: nil,
		groups:           make(map[pathmodel.AbsolutePath]*orderedGroup),
		ignore:           gi,
		ignoreRoot:       configDir,
	}

	manifestDirs := map[pathmodel.AbsolutePath]bool{pathmodel.AbsolutePath(configDir): true}

	for _, name := range names {
		tc := cfg.Targets[name]
		outPath := outputPaths[name]

		if !selected(name, filters) {
			p.DisabledOutputs[outPath] = true
			p.DisabledNames = append(p.DisabledNames, name)
			continue
		}

		inputs, manifest, rerr := resolveTarget(configDir, tc.Inputs, manifestName, gi)
		if rerr != nil {
			p.ResolutionErrors = append(p.ResolutionErrors, ResolutionError{
				OutputPath:      outPath,
				CompilationMode: output.ModeStandard,
				Err:             rerr,
			})
			continue
		}

		reals := make([]pathmodel.RealPath, 0, len(inputs))
		for _, in := range inputs {
			reals = append(reals, in.Real)
		}

		state := output.New(name, outPath, reals, output.ModeStandard)
		manifestDirs[manifest] = true

		g, ok := p.groups[manifest]
		if !ok {
			g = &orderedGroup{manifest: manifest, outputs: make(map[pathmodel.AbsolutePath]*output.OutputState)}
			p.groups[manifest] = g
			p.manifestOrder = append(p.manifestOrder, manifest)
		}
		g.order = append(g.order, outPath)
		g.outputs[outPath] = state
	}

	roots := make([]pathmodel.AbsolutePath, 0, len(manifestDirs))
	for d := range manifestDirs {
		roots = append(roots, d)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	watchRoot, err := pathmodel.LongestCommonAncestor(roots...)
	if err != nil {
		return nil, &NoCommonRoot{Cause: err}
	}
	p.WatchRoot = watchRoot

	p.MaxParallel = resolveMaxParallel()

	if len(cfg.Postprocess) > 0 {
		p.Postprocess = &Postprocess{Argv: cfg.Postprocess}
	}

	return p, nil
}

func selected(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

// resolveTarget implements steps 3-6 of §4.1 for a single target.
func resolveTarget(configDir string, inputStrings []string, manifestName string, gi *ignore.GitIgnore) ([]InputPath, pathmodel.AbsolutePath, error) {
	expanded, err := expandInputs(configDir, inputStrings, gi)
	if err != nil {
		return nil, "", err
	}

	var notFound []string
	var failedToResolve []string
	var resolved []InputPath

	for _, original := range expanded {
		abs, err := pathmodel.NewAbsolutePath(configDir, original)
		if err != nil {
			failedToResolve = append(failedToResolve, original)
			continue
		}
		real, err := abs.Resolve()
		if err != nil {
			if os.IsNotExist(err) {
				notFound = append(notFound, original)
			} else {
				failedToResolve = append(failedToResolve, original)
			}
			continue
		}
		resolved = append(resolved, InputPath{Configured: abs, Real: real, OriginalString: original})
	}

	if len(notFound) > 0 {
		return nil, "", &InputsNotFound{Inputs: notFound}
	}
	if len(failedToResolve) > 0 {
		return nil, "", &InputsFailedToResolve{Inputs: failedToResolve}
	}

	seen := make(map[pathmodel.RealPath]bool, len(resolved))
	for _, r := range resolved {
		if seen[r.Real] {
			return nil, "", &DuplicateInputs{Real: r.Real}
		}
		seen[r.Real] = true
	}

	var manifest pathmodel.AbsolutePath
	manifests := make(map[pathmodel.AbsolutePath]bool)
	for _, r := range resolved {
		m, err := pathmodel.NearestAncestorFile(pathmodel.AbsolutePath(r.Real).Dir(), manifestName)
		if err != nil {
			return nil, "", &ManifestNotFound{Input: r.Real}
		}
		manifests[m] = true
		manifest = m
	}
	if len(manifests) > 1 {
		list := make([]pathmodel.AbsolutePath, 0, len(manifests))
		for m := range manifests {
			list = append(list, m)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		return nil, "", &NonUniqueManifests{Manifests: list}
	}

	return resolved, manifest, nil
}

// expandInputs expands glob-bearing configured input strings (resolved
// against configDir) via doublestar, dropping any match excluded by gi;
// literal strings pass through unchanged (§4.1 step 3, expanded with
// ignore-file filtering).
func expandInputs(configDir string, patterns []string, gi *ignore.GitIgnore) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) || !hasGlobMeta(pattern) {
			out = append(out, pattern)
			continue
		}
		matches, err := doublestar.FilepathGlob(joinForGlob(configDir, pattern))
		if err != nil {
			out = append(out, pattern)
			continue
		}
		matches = filterIgnored(configDir, matches, gi)
		if len(matches) == 0 {
			out = append(out, pattern)
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

// filterIgnored drops any path in matches (absolute or configDir-relative)
// that gi excludes.
func filterIgnored(configDir string, matches []string, gi *ignore.GitIgnore) []string {
	if gi == nil {
		return matches
	}
	kept := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(configDir, m)
		if err != nil || !matchesIgnore(gi, rel) {
			kept = append(kept, m)
		}
	}
	return kept
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func joinForGlob(base, pattern string) string {
	if strings.HasPrefix(pattern, "/") {
		return pattern
	}
	return base + string(os.PathSeparator) + pattern
}

// resolveMaxParallel implements §4.1 step 8: MAX_PARALLEL env override,
// else runtime.NumCPU() scaled down when cgroup/container markers are
// detected (grounded on serve/environment.go's isRunningInContainer and
// getResourceLimits: container cgroups routinely cap pthread counts well
// below what CPU quota alone would suggest), clamped to at least 1.
func resolveMaxParallel() int {
	if v := os.Getenv("MAX_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			return n
		}
	}

	numCPU := runtime.NumCPU()
	if !isRunningInContainer() {
		if numCPU >= 1 {
			return numCPU
		}
		return 1
	}

	n := numCPU / 4
	switch {
	case n < 1:
		n = 1
	case n > 4:
		n = 4
	}
	return n
}
