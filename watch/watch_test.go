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

package watch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.watchforge.dev/watchforge/internal/platform"
	"go.watchforge.dev/watchforge/pathmodel"
	"go.watchforge.dev/watchforge/watch"
)

func realPathOf(t *testing.T, p string) pathmodel.RealPath {
	t.Helper()
	abs, err := pathmodel.NewAbsolutePath("", p)
	require.NoError(t, err)
	real, err := abs.Resolve()
	require.NoError(t, err)
	return real
}

func TestAdapterClassifiesConfigChange(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "watchforge.json")
	require.NoError(t, os.WriteFile(configPath, []byte("{}"), 0644))

	configReal := realPathOf(t, configPath)

	mock := platform.NewMockFileWatcher()
	require.NoError(t, mock.Add(dir))
	adapter := watch.NewAdapter(mock, func() watch.Classifier {
		return watch.Classifier{ConfigPath: configReal}
	})
	defer adapter.Close()

	mock.TriggerEvent(configPath, platform.Write)

	select {
	case ev := <-adapter.Events():
		assert.Equal(t, watch.KindConfigChanged, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a classified event")
	}
}

func TestAdapterClassifiesSourceChange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Main.elm")
	require.NoError(t, os.WriteFile(src, []byte("module Main exposing (main)"), 0644))
	srcReal := realPathOf(t, src)

	mock := platform.NewMockFileWatcher()
	require.NoError(t, mock.Add(dir))
	adapter := watch.NewAdapter(mock, func() watch.Classifier {
		return watch.Classifier{
			RelatedSources: map[pathmodel.RealPath][]string{srcReal: {"Html"}},
		}
	})
	defer adapter.Close()

	mock.TriggerEvent(src, platform.Write)

	select {
	case ev := <-adapter.Events():
		require.Equal(t, watch.KindSourceChanged, ev.Kind)
		assert.Equal(t, []string{"Html"}, ev.Targets)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a classified event")
	}
}

func TestAdapterDebouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Main.elm")
	require.NoError(t, os.WriteFile(src, []byte("v1"), 0644))
	srcReal := realPathOf(t, src)

	mock := platform.NewMockFileWatcher()
	require.NoError(t, mock.Add(dir))
	adapter := watch.NewAdapter(mock, func() watch.Classifier {
		return watch.Classifier{RelatedSources: map[pathmodel.RealPath][]string{srcReal: {"Html"}}}
	})
	defer adapter.Close()

	for i := 0; i < 5; i++ {
		mock.TriggerEvent(src, platform.Write)
	}

	count := 0
	timeout := time.After(1 * time.Second)
loop:
	for {
		select {
		case <-adapter.Events():
			count++
		case <-timeout:
			break loop
		}
	}
	assert.Equal(t, 1, count)
}

func TestAdapterSuppressesOwnWrite(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "Main.js")
	require.NoError(t, os.WriteFile(artifact, []byte("payload"), 0644))

	mock := platform.NewMockFileWatcher()
	require.NoError(t, mock.Add(dir))
	adapter := watch.NewAdapter(mock, func() watch.Classifier { return watch.Classifier{} })
	defer adapter.Close()

	adapter.NotifyOwnWrite(artifact, []byte("payload"))
	mock.TriggerEvent(artifact, platform.Write)

	select {
	case ev := <-adapter.Events():
		t.Fatalf("expected no event for our own write, got %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
