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

package project

import (
	"os"
	"strings"
)

// isRunningInContainer detects Docker, Podman and Kubernetes environments
// via the same heuristics the teacher's serve package uses: a Docker marker
// file, known container environment variables, and cgroup membership.
func isRunningInContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	containerEnvVars := []string{
		"KUBERNETES_SERVICE_HOST", // Kubernetes
		"container",               // Podman/systemd
		"DOCKER_CONTAINER",        // Some Docker setups
	}
	for _, envVar := range containerEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}

	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		containerIndicators := []string{
			"/docker/",
			"/kubepods/",
			"/podman/",
			"/containerd/",
		}
		for _, indicator := range containerIndicators {
			if strings.Contains(content, indicator) {
				return true
			}
		}
	}

	return false
}
