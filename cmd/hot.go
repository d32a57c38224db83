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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfgpkg "go.watchforge.dev/watchforge/cmd/config"
	"go.watchforge.dev/watchforge/internal/logging"
	"go.watchforge.dev/watchforge/internal/platform"
	"go.watchforge.dev/watchforge/internal/version"
	"go.watchforge.dev/watchforge/output"
	"go.watchforge.dev/watchforge/pathmodel"
	"go.watchforge.dev/watchforge/postprocess"
	"go.watchforge.dev/watchforge/preferences"
	"go.watchforge.dev/watchforge/project"
	"go.watchforge.dev/watchforge/session"
	"go.watchforge.dev/watchforge/supervisor"
	"go.watchforge.dev/watchforge/watch"
)

const defaultWorkerIdleTimeout = 30 * time.Second

// hotCmd is the one primary command named by spec.md §6.5: positional
// arguments are substring filters over target names.
var hotCmd = &cobra.Command{
	Use:   "hot [target-filters...]",
	Short: "Watch sources, compile, and push hot-reload updates to connected browsers",
	Long: `hot resolves the watch configuration, builds every enabled target once on
start, then watches the configuration, manifests and tracked sources for
changes, recompiling and notifying connected browser sessions as results
land.

Positional arguments are substring filters: a target is enabled only if its
name contains at least one of them. With no filters, every target is
enabled.`,
	RunE: runHot,
}

func init() {
	hotCmd.Flags().String("watch-config", "", "path to the watch configuration document (default: <project-dir>/watchforge.json)")
	hotCmd.Flags().StringSlice("compiler", nil, "compiler binary and fixed base arguments")
	hotCmd.Flags().StringSlice("postprocess-host", nil, "script-host binary and fixed base arguments for the postprocess worker pool")
	hotCmd.Flags().Int("port", 0, "websocket listen port (0: reuse the preferences port, or 8900)")
	viper.BindPFlag("watchConfig", hotCmd.Flags().Lookup("watch-config"))
	viper.BindPFlag("compiler", hotCmd.Flags().Lookup("compiler"))
	viper.BindPFlag("postprocessHost", hotCmd.Flags().Lookup("postprocess-host"))
	rootCmd.AddCommand(hotCmd)
}

func runHot(cmd *cobra.Command, filters []string) error {
	var cfg cfgpkg.WatchforgeConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("hot: decoding configuration: %w", err)
	}
	if len(cfg.Compiler) == 0 {
		return errors.New(`hot: no compiler configured (set --compiler, or "compiler" in .config/watchforge.yaml)`)
	}

	watchConfigPath := resolveWatchConfigPath(cfg)

	watchConfig, err := project.LoadConfig(watchConfigPath)
	if err != nil {
		return err
	}
	configDir := filepath.Dir(watchConfigPath)

	proj, err := project.Resolve(watchConfig, configDir, "", filters)
	if err != nil {
		return err
	}
	for _, rerr := range proj.ResolutionErrors {
		logging.Get().Warning("target %s: %v", rerr.OutputPath, rerr.Err)
	}

	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return err
	}
	prefsPath := filepath.Join(string(proj.WatchRoot), ".watchforge", "preferences.json")
	prefs := preferences.Load(prefsPath)
	proj.ApplyPreferences(prefs)
	if port != 0 {
		prefs.Port = port
	} else if prefs.Port == 0 {
		prefs.Port = 8900
	}
	if err := preferences.Save(prefsPath, prefs); err != nil {
		logging.Get().Warning("saving preferences: %v", err)
	}

	var pool *postprocess.Pool
	if proj.Postprocess != nil {
		if len(cfg.PostprocessHost) == 0 {
			return errors.New(`hot: watch config names a postprocess command but no --postprocess-host is configured`)
		}
		pool = postprocess.NewPool(cfg.PostprocessHost, proj.MaxParallel, workerIdleTimeout())
		defer pool.Shutdown()
	}

	configReal, err := pathmodel.AbsolutePath(watchConfigPath).Resolve()
	if err != nil {
		return fmt.Errorf("hot: resolving watch config path: %w", err)
	}

	fw, err := platform.NewFSNotifyFileWatcher()
	if err != nil {
		return fmt.Errorf("hot: starting file watcher: %w", err)
	}
	if err := watch.AddTree(fw, string(proj.WatchRoot), realPathIgnored(proj)); err != nil {
		return fmt.Errorf("hot: watching %s: %w", proj.WatchRoot, err)
	}
	adapter := watch.NewAdapter(fw, func() watch.Classifier { return proj.Classifier(configReal, "") })
	defer adapter.Close()

	sup := supervisor.New(proj, cfg.Compiler, configDir, pool)
	registry := session.NewRegistry()

	persistMode := func(targetName, mode string) {
		prefs.Targets[targetName] = preferences.TargetPreference{CompilationMode: mode}
		if err := preferences.Save(prefsPath, prefs); err != nil {
			logging.Get().Warning("saving preferences: %v", err)
		}
	}
	server := newSessionServer(prefs.Port, proj, registry, sup, persistMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Get().Error("supervisor stopped: %v", err)
		}
	}()
	go func() {
		for ev := range adapter.Events() {
			sup.HandleWatchEvent(ev)
		}
	}()

	serverErrs := make(chan error, 1)
	go func() {
		logging.Get().Info("listening on ws://localhost:%d/", prefs.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		logging.Get().Info("shutting down")
	case err := <-serverErrs:
		return fmt.Errorf("hot: http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	broadcastShutdown(proj, registry)
	return nil
}

func resolveWatchConfigPath(cfg cfgpkg.WatchforgeConfig) string {
	path := cfg.WatchConfig
	if path == "" {
		path = filepath.Join(cfg.ProjectDir, "watchforge.json")
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.ProjectDir, path)
	}
	return path
}

// workerIdleTimeout implements the WORKER_LIMIT_TIMEOUT_MS override named in
// spec.md §6.5.
func workerIdleTimeout() time.Duration {
	if v := os.Getenv("WORKER_LIMIT_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultWorkerIdleTimeout
}

// realPathIgnored adapts Project.IsIgnored (which takes a resolved RealPath)
// to the plain-string predicate watch.AddTree walks with.
func realPathIgnored(proj *project.Project) func(string) bool {
	return func(p string) bool {
		real, err := pathmodel.AbsolutePath(p).Resolve()
		if err != nil {
			return false
		}
		return proj.IsIgnored(real)
	}
}

// newSessionServer builds the minimal websocket-upgrade endpoint described
// in §6.3: the HTTP/websocket transport itself is an out-of-scope external
// collaborator (§1), so this wires only the handshake validation and the
// supervisor/registry plumbing around it, in the teacher's
// serve/websocket.go connection-wrapper style.
func newSessionServer(port int, proj *project.Project, registry *session.Registry, sup *supervisor.Supervisor, persistMode func(targetName, mode string)) *http.Server {
	var nextSessionID uint64

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handshake, err := session.ParseHandshake(r.URL.Path, r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := session.ValidateVersion(handshake, version.GetVersion()); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := session.ValidateTarget(handshake, proj.EnabledNames(), proj.DisabledNames); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		conn, err := session.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Get().Warning("websocket upgrade failed: %v", err)
			return
		}

		id := session.ID(atomic.AddUint64(&nextSessionID, 1))
		sess := session.NewSession(id, handshake.TargetName, conn)
		registry.Add(sess)
		sup.Connect(sess)
		defer func() {
			registry.Remove(id)
			sup.Disconnect(id)
			_ = sess.Close()
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch msg := session.ParseClientMessage(raw); msg.Tag {
			case session.ClientChangedCompilationMode:
				mode, ok := parseCompilationMode(msg.CompilationMode)
				if !ok {
					continue
				}
				sup.ChangeCompilationMode(sess.TargetName, mode)
				persistMode(sess.TargetName, string(mode))
			case session.ClientExitRequested:
				return
			case session.ClientFocusedTab:
				// No scheduling effect yet (§4.7 names the tag; no behavior
				// is specified beyond acknowledging it over the wire).
			default:
				logging.Get().Warning("session %d: unrecognized client message", id)
			}
		}
	})

	return &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
}

// parseCompilationMode validates a ChangedCompilationMode payload against
// the three known modes, rejecting anything else rather than forwarding it
// to the supervisor.
func parseCompilationMode(raw string) (output.CompilationMode, bool) {
	switch output.CompilationMode(raw) {
	case output.ModeDebug, output.ModeStandard, output.ModeOptimize:
		return output.CompilationMode(raw), true
	default:
		return "", false
	}
}

// broadcastShutdown closes every live session before the process exits,
// mirroring the teacher's websocketManager shutdown broadcast
// (serve/websocket.go) adapted from an explicit shutdown message to a clean
// connection close, since ServerMessage (§4.7) names no shutdown tag.
func broadcastShutdown(proj *project.Project, registry *session.Registry) {
	for _, name := range proj.EnabledNames() {
		for _, sess := range registry.ForTarget(name) {
			_ = sess.Close()
		}
	}
}
