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

// Package version exposes build metadata, set via -ldflags at release time
// and falling back to Go's embedded module build info during development.
package version

import "runtime/debug"

// Version is overridden at build time: -ldflags "-X go.watchforge.dev/watchforge/internal/version.Version=1.2.3"
var Version = "dev"

// BuildInfo is the version subcommand's JSON output shape.
type BuildInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	Revision  string `json:"revision,omitempty"`
}

// GetVersion returns Version, or "dev" if not overridden at build time.
func GetVersion() string { return Version }

// GetBuildInfo gathers version, Go toolchain version and VCS revision (when
// built with module mode and a clean checkout records one).
func GetBuildInfo() BuildInfo {
	info := BuildInfo{Version: Version}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		for _, setting := range bi.Settings {
			if setting.Key == "vcs.revision" {
				info.Revision = setting.Value
			}
		}
	}
	return info
}
