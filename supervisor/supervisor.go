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

// Package supervisor implements the single-threaded actor of §5: one
// goroutine owns every mutable OutputState, the session registry and the
// scheduler's in-flight counters, reacting to a serialized inbox of events
// (watcher, build completion, session subscription). It is grounded on
// serve/server.go's central Server struct, adapted from a mutex-guarded
// shared struct to message passing — the spec requires "no locks required
// on core data structures" (§5), which a single owning goroutine satisfies
// without the teacher's sync.RWMutex.
package supervisor

import (
	"context"
	"errors"
	"os"
	"time"

	"go.watchforge.dev/watchforge/compiler"
	"go.watchforge.dev/watchforge/inject"
	"go.watchforge.dev/watchforge/internal/logging"
	"go.watchforge.dev/watchforge/output"
	"go.watchforge.dev/watchforge/pathmodel"
	"go.watchforge.dev/watchforge/postprocess"
	"go.watchforge.dev/watchforge/project"
	"go.watchforge.dev/watchforge/scheduler"
	"go.watchforge.dev/watchforge/session"
	"go.watchforge.dev/watchforge/watch"
)

// event is the sealed set of messages the control loop reacts to.
type event interface{ isEvent() }

type dirtyEvent struct{ targetName string }

func (dirtyEvent) isEvent() {}

type configChangedEvent struct{}

func (configChangedEvent) isEvent() {}

type buildDoneEvent struct {
	targetName string
	result     *compiler.Result
	err        error
}

func (buildDoneEvent) isEvent() {}

type postprocessDoneEvent struct {
	targetName string
	payload    []byte
	err        error
}

func (postprocessDoneEvent) isEvent() {}

type sessionConnectEvent struct{ s *session.Session }

func (sessionConnectEvent) isEvent() {}

type sessionDisconnectEvent struct{ id session.ID }

func (sessionDisconnectEvent) isEvent() {}

type changeCompilationModeEvent struct {
	targetName string
	mode       output.CompilationMode
}

func (changeCompilationModeEvent) isEvent() {}

// target bundles one OutputState with its manifest group and any in-flight
// cancellation.
type target struct {
	state    *output.OutputState
	manifest pathmodel.AbsolutePath
	cancel   context.CancelFunc
	queuedAt time.Time

	// fingerprint is the last delivered build's ArtifactFingerprint, nil
	// until the first successful delivery (§4.7).
	fingerprint *session.ArtifactFingerprint
}

// Supervisor is the single-threaded actor tying every component together.
type Supervisor struct {
	project  *project.Project
	driver   *compiler.Driver
	injector *inject.Injector
	pool     *postprocess.Pool
	sessions *session.Registry
	logger   *logging.Logger
	argv     []string // compiler binary + base args
	compilerDir string

	targets map[string]*target

	inFlight          int
	activePerManifest map[pathmodel.AbsolutePath]int

	inbox chan event
}

// New constructs a Supervisor over an already-resolved Project.
func New(p *project.Project, argv []string, compilerDir string, pool *postprocess.Pool) *Supervisor {
	s := &Supervisor{
		project:           p,
		driver:            &compiler.Driver{},
		injector:          inject.New(),
		pool:              pool,
		sessions:          session.NewRegistry(),
		logger:            logging.Get(),
		argv:              argv,
		compilerDir:       compilerDir,
		targets:           make(map[string]*target),
		activePerManifest: make(map[pathmodel.AbsolutePath]int),
		inbox:             make(chan event, 256),
	}
	for _, manifest := range p.Groups() {
		for _, st := range p.Outputs(manifest) {
			s.targets[st.TargetName] = &target{state: st, manifest: manifest}
		}
	}
	return s
}

// Run drives the control loop until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	// Every enabled target starts dirty: an initial build is owed.
	for name, t := range s.targets {
		t.state.MarkDirty()
		s.enqueue(name, t)
	}
	s.dispatch(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.inbox:
			s.handle(ctx, ev)
			s.dispatch(ctx)
		}
	}
}

// HandleWatchEvent feeds one classified watcher event into the actor.
// Safe to call from the watch.Adapter's goroutine: it only enqueues.
func (s *Supervisor) HandleWatchEvent(ev watch.Event) {
	switch ev.Kind {
	case watch.KindConfigChanged:
		s.inbox <- configChangedEvent{}
	case watch.KindManifestChanged:
		for name, t := range s.targets {
			if t.manifest == ev.Manifest {
				s.inbox <- dirtyEvent{targetName: name}
			}
		}
	case watch.KindSourceChanged:
		for _, name := range ev.Targets {
			s.inbox <- dirtyEvent{targetName: name}
		}
	}
}

// Connect registers a browser session after its handshake has already been
// validated by the caller.
func (s *Supervisor) Connect(sess *session.Session) { s.inbox <- sessionConnectEvent{s: sess} }

// Disconnect removes a session.
func (s *Supervisor) Disconnect(id session.ID) { s.inbox <- sessionDisconnectEvent{id: id} }

// ChangeCompilationMode applies a live ChangedCompilationMode client message
// (§4.7 message taxonomy): the target is marked dirty so the next dispatch
// rebuilds it under the new mode.
func (s *Supervisor) ChangeCompilationMode(targetName string, mode output.CompilationMode) {
	s.inbox <- changeCompilationModeEvent{targetName: targetName, mode: mode}
}

func (s *Supervisor) handle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case dirtyEvent:
		s.handleDirty(e.targetName)
	case configChangedEvent:
		s.handleConfigChanged()
	case buildDoneEvent:
		s.handleBuildDone(ctx, e)
	case postprocessDoneEvent:
		s.handlePostprocessDone(e)
	case sessionConnectEvent:
		s.sessions.Add(e.s)
		// A freshly connected browser needs a real artifact, not the
		// typecheck-only build an unsessioned target settles for.
		if t, ok := s.targets[e.s.TargetName]; ok && t.state.Status.Tag != output.StatusQueuedForBuild {
			s.handleDirty(e.s.TargetName)
		}
	case sessionDisconnectEvent:
		s.sessions.Remove(e.id)
	case changeCompilationModeEvent:
		s.handleChangeCompilationMode(e.targetName, e.mode)
	}
}

// handleChangeCompilationMode updates a target's compilation mode and
// triggers a rebuild under it. A no-op mode change is ignored.
func (s *Supervisor) handleChangeCompilationMode(targetName string, mode output.CompilationMode) {
	t, ok := s.targets[targetName]
	if !ok || t.state.CompilationMode == mode {
		return
	}
	t.state.CompilationMode = mode
	s.handleDirty(targetName)
}

func (s *Supervisor) handleDirty(targetName string) {
	t, ok := s.targets[targetName]
	if !ok {
		return
	}
	if t.state.Status.IsInFlight() {
		if t.cancel != nil {
			t.cancel()
		}
		t.state.Status = output.Status{Tag: output.StatusInterrupted}
	}
	t.state.MarkDirty()
	s.enqueue(targetName, t)
}

func (s *Supervisor) enqueue(targetName string, t *target) {
	t.state.Status = output.Status{Tag: output.StatusQueuedForBuild, QueuedAt: time.Now()}
	t.queuedAt = t.state.Status.QueuedAt
	t.state.Dirty = false
}

func (s *Supervisor) handleConfigChanged() {
	// Cancels every in-flight build and marks it Interrupted. The project is
	// not re-resolved, and this instance keeps scheduling later dirty
	// signals against the targets it was constructed with.
	for _, t := range s.targets {
		if t.cancel != nil {
			t.cancel()
			if t.state.Status.IsInFlight() {
				t.state.Status = output.Status{Tag: output.StatusInterrupted}
			}
		}
	}
}

// dispatch asks the scheduler what to start next and launches it.
func (s *Supervisor) dispatch(ctx context.Context) {
	var candidates []scheduler.Candidate
	for name, t := range s.targets {
		if t.state.Status.Tag != output.StatusQueuedForBuild {
			continue
		}
		candidates = append(candidates, scheduler.Candidate{
			TargetName:    name,
			Manifest:      t.manifest,
			QueuedAt:      t.queuedAt,
			HasSession:    s.sessions.HasSession(name),
			PreferredMode: t.state.CompilationMode,
		})
	}

	decisions := scheduler.Next(candidates, s.inFlight, s.project.MaxParallel, s.activePerManifest)
	for _, d := range decisions {
		s.startBuild(ctx, d)
	}
}

func (s *Supervisor) startBuild(ctx context.Context, d scheduler.Decision) {
	t := s.targets[d.TargetName]
	buildCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	s.inFlight++
	s.activePerManifest[d.Manifest]++

	tag := output.StatusBuilding
	if d.Typecheck {
		tag = output.StatusTypecheckOnly
	}
	t.state.Status = output.Status{Tag: tag, Mode: d.Mode}

	req := compiler.Request{
		Argv:      s.argv,
		Inputs:    t.state.Inputs,
		Output:    t.state.OutputPath,
		Mode:      d.Mode,
		Typecheck: d.Typecheck,
		Dir:       s.compilerDir,
	}

	s.logger.WithTarget(d.TargetName).Info("compiling (%s)", d.Mode)

	go func() {
		res, err := s.driver.Run(buildCtx, req)
		s.inbox <- buildDoneEvent{targetName: d.TargetName, result: res, err: err}
	}()
}

func (s *Supervisor) handleBuildDone(ctx context.Context, e buildDoneEvent) {
	t, ok := s.targets[e.targetName]
	if !ok {
		return
	}

	s.inFlight--
	s.activePerManifest[t.manifest]--

	// Builds are cancelled only by handleDirty and handleConfigChanged, and
	// both have already set the target's status (handleDirty re-queues it,
	// and dispatch may have started a replacement whose cancel func t.cancel
	// now holds), so the interrupted result is dropped.
	if errors.Is(e.err, compiler.Interrupted) {
		return
	}
	t.cancel = nil

	if e.err != nil {
		s.classifyBuildError(t, e.err)
		return
	}

	if t.state.Status.Tag == output.StatusTypecheckOnly {
		t.state.Status = output.Status{
			Tag:        output.StatusSuccess,
			CompiledAt: time.Now(),
			Durations:  []output.Span{{Kind: output.SpanTypecheckOnly, Duration: e.result.Duration}},
		}
		return
	}

	if err := s.injector.Inject(string(t.state.OutputPath), true); err != nil {
		s.classifyInjectError(t, err)
		return
	}

	if s.project.Postprocess != nil && s.pool != nil {
		t.state.Status = output.Status{Tag: output.StatusPostprocessing}
		go s.runPostprocess(ctx, e.targetName, t)
		return
	}

	s.finishSuccess(t)
}

func (s *Supervisor) runPostprocess(ctx context.Context, targetName string, t *target) {
	payload, err := readFile(string(t.state.OutputPath))
	if err != nil {
		s.inbox <- postprocessDoneEvent{targetName: targetName, err: &inject.ReadOutputError{Cause: err}}
		return
	}
	result, err := s.pool.Submit(ctx, postprocess.Request{
		ScriptPath: s.project.Postprocess.Argv[0],
		UserArgs:   s.project.Postprocess.Argv[1:],
		Payload:    payload,
	})
	s.inbox <- postprocessDoneEvent{targetName: targetName, payload: result, err: err}
}

func (s *Supervisor) handlePostprocessDone(e postprocessDoneEvent) {
	t, ok := s.targets[e.targetName]
	if !ok {
		return
	}
	if e.err != nil {
		t.state.Status = output.Status{Tag: output.StatusPostprocessError, Err: e.err}
		return
	}
	if err := writeFile(string(t.state.OutputPath), e.payload); err != nil {
		t.state.Status = output.Status{Tag: output.StatusWriteOutputError, Err: err}
		return
	}
	s.finishSuccess(t)
}

// finishSuccess implements the delivery half of the reload verdict
// algorithm (§4.7): it reads the artifact just written by the injector,
// derives its fingerprint, compares against the last delivered fingerprint
// for this target, and sends exactly one message to each subscribed
// session — Artifact for the first delivery or an in-place patch, FullReload
// when the verdict calls for one.
func (s *Supervisor) finishSuccess(t *target) {
	code, err := readFile(string(t.state.OutputPath))
	if err != nil {
		t.state.Status = output.Status{Tag: output.StatusReadOutputError, Err: err}
		return
	}

	var recordFields []string
	if t.state.CompilationMode == output.ModeOptimize {
		fields := extractRecordFields(string(code))
		t.state.RecordFields = fields
		recordFields = sortedKeys(fields)
	} else {
		t.state.RecordFields = nil
	}

	next := deriveFingerprint(string(code), recordFields)
	first := t.fingerprint == nil
	var verdict session.Verdict
	if !first {
		verdict = session.ComputeVerdict(*t.fingerprint, next)
	}
	t.fingerprint = &next

	compiledAt := time.Now()
	t.state.Status = output.Status{
		Tag:          output.StatusSuccess,
		CompiledAt:   compiledAt,
		ArtifactSize: len(code),
	}
	s.logger.WithTarget(t.state.TargetName).Info("compiled successfully")

	sessions := s.sessions.ForTarget(t.state.TargetName)
	if len(sessions) == 0 {
		return
	}

	// A target's first successful delivery is always the real artifact
	// (§8 Scenario 1): there is nothing yet to compare it against.
	if !first && verdict.FullReload {
		msg := session.ServerMessage{Tag: session.ServerFullReload, ReloadReason: verdict.Reason}
		for _, sess := range sessions {
			_ = sess.Send(msg)
		}
		return
	}

	msg := session.ServerMessage{
		Tag:          session.ServerArtifact,
		Bytes:        code,
		CompiledAt:   compiledAt.Unix(),
		RecordFields: recordFields,
	}
	for _, sess := range sessions {
		_ = sess.Send(msg)
	}
}

func (s *Supervisor) classifyBuildError(t *target, err error) {
	switch err.(type) {
	case *compiler.ParseError:
		t.state.Status = output.Status{Tag: output.StatusParseError, Err: err}
	default:
		if err == compiler.Interrupted {
			t.state.Status = output.Status{Tag: output.StatusInterrupted}
			return
		}
		t.state.Status = output.Status{Tag: output.StatusCompilerError, Err: err}
	}
	s.logger.WithTarget(t.state.TargetName).Error("%v", err)
	for _, sess := range s.sessions.ForTarget(t.state.TargetName) {
		_ = sess.Send(session.ServerMessage{Tag: session.ServerCompilationError, Reason: err.Error()})
	}
}

func (s *Supervisor) classifyInjectError(t *target, err error) {
	switch e := err.(type) {
	case *inject.InjectError:
		t.state.Status = output.Status{Tag: output.StatusInjectError, Err: err, DiagnosticPath: e.DiagnosticPath}
	case *inject.ReadOutputError:
		t.state.Status = output.Status{Tag: output.StatusReadOutputError, Err: err}
	case *inject.WriteOutputError:
		t.state.Status = output.Status{Tag: output.StatusWriteOutputError, Err: err}
	default:
		t.state.Status = output.Status{Tag: output.StatusInjectError, Err: err}
	}
}

// Status exposes the current status of a target, for tests and the CLI's
// terminal renderer.
func (s *Supervisor) Status(targetName string) (output.Status, bool) {
	t, ok := s.targets[targetName]
	if !ok {
		return output.Status{}, false
	}
	return t.state.Status, true
}

func readFile(path string) ([]byte, error)    { return os.ReadFile(path) }
func writeFile(path string, data []byte) error { return os.WriteFile(path, data, 0644) }
