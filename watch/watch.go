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

// Package watch adapts a raw filesystem watcher into the classified dirty
// signals the supervisor's control loop consumes (§4.4). It is a near
// one-to-one adaptation of generate/session_watch.go's WatchSession: a
// debounce timer per path feeding a classification step, except here the
// classifier distinguishes watch-config, manifest and tracked-source paths
// instead of "is this one of our glob inputs".
package watch

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.watchforge.dev/watchforge/internal/platform"
	"go.watchforge.dev/watchforge/pathmodel"
)

// Kind classifies a coalesced filesystem change per §4.4.
type Kind int

const (
	// KindConfigChanged fires when the watch-config file itself changed:
	// the whole project must be re-resolved.
	KindConfigChanged Kind = iota
	// KindManifestChanged fires when a manifest file changed: every
	// output under that manifest is marked dirty.
	KindManifestChanged
	// KindSourceChanged fires when a tracked source file changed: the
	// owning outputs (by AllRelatedSourcePaths) are marked dirty.
	KindSourceChanged
	// KindUntracked fires for changes within watchRoot that are not the
	// config, a manifest, or a tracked source — purely informational.
	KindUntracked
)

// Event is a classified, debounced filesystem change.
type Event struct {
	Kind     Kind
	Path     pathmodel.RealPath
	Manifest pathmodel.AbsolutePath // set for KindManifestChanged
	Targets  []string               // set for KindSourceChanged
}

// Classifier maps a changed real path to the targets it affects. The
// Adapter re-derives it, by calling the function passed to NewAdapter, each
// time a debounced path fires.
type Classifier struct {
	ConfigPath     pathmodel.RealPath
	Manifests      map[pathmodel.RealPath]pathmodel.AbsolutePath
	RelatedSources map[pathmodel.RealPath][]string

	// Ignore, when set, excludes paths (e.g. a .gitignore match) from ever
	// producing anything but KindUntracked, so an ignored file never marks
	// a target dirty (§4.4 expansion).
	Ignore func(pathmodel.RealPath) bool
}

// Classify implements the §4.4 per-event decision tree.
func (c Classifier) Classify(path pathmodel.RealPath) Event {
	if c.Ignore != nil && c.Ignore(path) {
		return Event{Kind: KindUntracked, Path: path}
	}
	if path == c.ConfigPath {
		return Event{Kind: KindConfigChanged, Path: path}
	}
	if manifest, ok := c.Manifests[path]; ok {
		return Event{Kind: KindManifestChanged, Path: path, Manifest: manifest}
	}
	if targets, ok := c.RelatedSources[path]; ok {
		return Event{Kind: KindSourceChanged, Path: path, Targets: targets}
	}
	return Event{Kind: KindUntracked, Path: path}
}

// debounceWindow is the §4.4 coalescing window (10-50ms band).
const debounceWindow = 30 * time.Millisecond

// Adapter wraps a platform.FileWatcher with per-path debouncing and
// self-write suppression, emitting classified Events on Events().
type Adapter struct {
	fw         platform.FileWatcher
	classifier func() Classifier

	mu      sync.Mutex
	timers  map[string]*time.Timer
	ownHash map[string][32]byte

	out  chan Event
	done chan struct{}
}

// NewAdapter wraps fw, calling classify() fresh on every debounce-expiry to
// pick up the latest project resolution (manifests/related sources may
// change across a re-resolve).
func NewAdapter(fw platform.FileWatcher, classify func() Classifier) *Adapter {
	a := &Adapter{
		fw:         fw,
		classifier: classify,
		timers:     make(map[string]*time.Timer),
		ownHash:    make(map[string][32]byte),
		out:        make(chan Event, 64),
		done:       make(chan struct{}),
	}
	go a.pump()
	return a
}

// Events returns the classified, debounced event stream.
func (a *Adapter) Events() <-chan Event { return a.out }

// NotifyOwnWrite records the hash of content just written to path, so a
// later event for path is suppressed while the file still holds that
// content. Only the tests call it; the supervisor records none of its writes.
func (a *Adapter) NotifyOwnWrite(path string, content []byte) {
	sum := sha256.Sum256(content)
	a.mu.Lock()
	a.ownHash[path] = sum
	a.mu.Unlock()
}

func (a *Adapter) pump() {
	for {
		select {
		case <-a.done:
			return
		case ev, ok := <-a.fw.Events():
			if !ok {
				return
			}
			if ev.Op&(platform.Write|platform.Create) == 0 {
				continue
			}
			if a.isOwnWrite(ev.Name) {
				continue
			}
			a.debounce(ev.Name)
		case _, ok := <-a.fw.Errors():
			if !ok {
				return
			}
		}
	}
}

func (a *Adapter) isOwnWrite(name string) bool {
	a.mu.Lock()
	expected, ok := a.ownHash[name]
	a.mu.Unlock()
	if !ok {
		return false
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return false
	}
	return sha256.Sum256(data) == expected
}

func (a *Adapter) debounce(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.timers[name]; ok {
		t.Stop()
	}
	a.timers[name] = time.AfterFunc(debounceWindow, func() { a.fire(name) })
}

func (a *Adapter) fire(name string) {
	abs, err := pathmodel.NewAbsolutePath("", name)
	if err != nil {
		return
	}
	real, err := abs.Resolve()
	if err != nil {
		return
	}
	ev := a.classifier().Classify(real)
	select {
	case a.out <- ev:
	case <-a.done:
	}
}

// ignoredDirNames are skipped (and not descended into) by AddTree, mirroring
// serve/filewatcher.go's shouldIgnore for build output and VCS directories.
var ignoredDirNames = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	".cache":       true,
}

// AddTree registers root and every non-ignored subdirectory beneath it with
// fw, since fsnotify (unlike some platform APIs) does not watch recursively.
// isIgnored, if non-nil (a resolved .gitignore match), additionally prunes
// directories it excludes.
func AddTree(fw platform.FileWatcher, root string, isIgnored func(string) bool) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if p != root && (ignoredDirNames[info.Name()] || (isIgnored != nil && isIgnored(p))) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}

// Close stops the adapter and the underlying watcher.
func (a *Adapter) Close() error {
	close(a.done)
	a.mu.Lock()
	for _, t := range a.timers {
		t.Stop()
	}
	a.mu.Unlock()
	return a.fw.Close()
}
