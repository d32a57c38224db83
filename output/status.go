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

// Package output models the per-target mutable build record (§3 OutputState,
// §4.2 status machine) and its duration accounting.
package output

import (
	"context"
	"time"

	"go.watchforge.dev/watchforge/pathmodel"
)

// CompilationMode is one of the three compiler invocation modes.
type CompilationMode string

const (
	ModeDebug     CompilationMode = "debug"
	ModeStandard  CompilationMode = "standard"
	ModeOptimize  CompilationMode = "optimize"
)

// SpanKind tags a single duration measurement within a build arc.
type SpanKind string

const (
	SpanQueued        SpanKind = "queued"
	SpanBuild         SpanKind = "build"
	SpanTypecheckOnly SpanKind = "typecheckOnly"
	SpanSourceWalk    SpanKind = "sourceWalk"
	SpanInject        SpanKind = "inject"
	SpanPostprocess   SpanKind = "postprocess"
)

// Span records the wall-clock duration of one phase of a build arc.
type Span struct {
	Kind     SpanKind
	Duration time.Duration
}

// StatusTag discriminates the OutputState.Status tagged union (§4.2).
type StatusTag string

const (
	StatusNotWrittenToDisk     StatusTag = "notWrittenToDisk"
	StatusQueuedForBuild       StatusTag = "queuedForBuild"
	StatusBuilding             StatusTag = "building"
	StatusTypecheckOnly        StatusTag = "typecheckOnly"
	StatusQueuedForPostprocess StatusTag = "queuedForPostprocess"
	StatusPostprocessing       StatusTag = "postprocessing"
	StatusSuccess              StatusTag = "success"
	StatusInterrupted          StatusTag = "interrupted"
	StatusParseError           StatusTag = "parseError"
	StatusInjectError          StatusTag = "injectError"
	StatusReadOutputError      StatusTag = "readOutputError"
	StatusWriteOutputError     StatusTag = "writeOutputError"
	StatusWriteProxyError      StatusTag = "writeProxyOutputError"
	StatusCompilerError        StatusTag = "compilerError"
	StatusPostprocessError     StatusTag = "postprocessError"
	StatusWalkSourcesError     StatusTag = "walkSourcesError"
)

// errorTags is the set of StatusTag values that are terminal error leaves.
var errorTags = map[StatusTag]bool{
	StatusParseError:       true,
	StatusInjectError:      true,
	StatusReadOutputError:  true,
	StatusWriteOutputError: true,
	StatusWriteProxyError:  true,
	StatusCompilerError:    true,
	StatusPostprocessError: true,
	StatusWalkSourcesError: true,
}

// Status is the tagged-union status value of an OutputState. Only the
// fields relevant to Tag are meaningful; see the constructor functions.
type Status struct {
	Tag StatusTag

	// QueuedForBuild
	QueuedAt time.Time

	// Building
	Mode      CompilationMode
	Cancel    context.CancelFunc
	Durations []Span

	// QueuedForPostprocess / Postprocessing
	PostprocessArgv []string
	Payload         []byte
	CompiledAt      time.Time
	RecordFields    map[string]bool

	// Success
	ArtifactSize int
	FinalSize    int

	// Error leaves
	Err            error
	DiagnosticPath string
}

// IsErrorLeaf reports whether s is one of the terminal error states.
func (s Status) IsErrorLeaf() bool { return errorTags[s.Tag] }

// IsTerminal reports whether s is Success or an error leaf: no further
// transition happens without a new dirty signal.
func (s Status) IsTerminal() bool { return s.Tag == StatusSuccess || s.IsErrorLeaf() }

// IsInFlight reports whether s represents an active, cancellable operation.
func (s Status) IsInFlight() bool {
	switch s.Tag {
	case StatusBuilding, StatusTypecheckOnly, StatusPostprocessing:
		return true
	default:
		return false
	}
}

// OutputState is the mutable per-target build record (§3).
type OutputState struct {
	TargetName     string
	OutputPath     pathmodel.AbsolutePath
	Inputs         []pathmodel.RealPath // immutable after creation
	CompilationMode CompilationMode
	Status         Status

	// AllRelatedSourcePaths is read by project.Classifier for dirty
	// propagation (§4.4). New creates it empty and nothing in this module
	// adds to it, so only a target's configured Inputs mark it dirty.
	AllRelatedSourcePaths map[pathmodel.RealPath]bool

	// RecordFields is defined iff the last successful build ran in
	// optimize mode (I6).
	RecordFields map[string]bool

	Dirty bool
}

// New creates an OutputState in its initial NotWrittenToDisk status.
func New(targetName string, outputPath pathmodel.AbsolutePath, inputs []pathmodel.RealPath, mode CompilationMode) *OutputState {
	return &OutputState{
		TargetName:            targetName,
		OutputPath:            outputPath,
		Inputs:                inputs,
		CompilationMode:       mode,
		Status:                Status{Tag: StatusNotWrittenToDisk},
		AllRelatedSourcePaths: make(map[pathmodel.RealPath]bool),
	}
}

// MarkDirty sets the dirty bit. If an in-flight operation is active, the
// caller is responsible for cancelling it and transitioning through
// Interrupted before re-entering QueuedForBuild (§4.2).
func (o *OutputState) MarkDirty() {
	o.Dirty = true
}

// Snapshot is a read-only, comparable copy of an OutputState's observable
// fields (§3 expansion). It shares no maps with the OutputState it was
// taken from, so changing it cannot change the live state.
type Snapshot struct {
	TargetName     string
	OutputPath     pathmodel.AbsolutePath
	Tag            StatusTag
	Mode           CompilationMode
	QueuedAt       time.Time
	CompiledAt     time.Time
	Durations      []Span
	ArtifactSize   int
	FinalSize      int
	Err            error
	DiagnosticPath string
	Dirty          bool
}

// Snapshot copies o's current status into an immutable value. The
// context.CancelFunc carried by an in-flight Status is deliberately not
// copied: a Snapshot observes, it never cancels.
func (o *OutputState) Snapshot() Snapshot {
	return Snapshot{
		TargetName:     o.TargetName,
		OutputPath:     o.OutputPath,
		Tag:            o.Status.Tag,
		Mode:           o.CompilationMode,
		QueuedAt:       o.Status.QueuedAt,
		CompiledAt:     o.Status.CompiledAt,
		Durations:      append([]Span(nil), o.Status.Durations...),
		ArtifactSize:   o.Status.ArtifactSize,
		FinalSize:      o.Status.FinalSize,
		Err:            o.Status.Err,
		DiagnosticPath: o.Status.DiagnosticPath,
		Dirty:          o.Dirty,
	}
}
