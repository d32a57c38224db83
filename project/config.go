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
	"encoding/json"
	"fmt"
	"os"
)

// TargetConfig is one entry of the watch configuration's targets map (§6.1).
type TargetConfig struct {
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
}

// Config is the on-disk watch configuration document (§6.1): a JSON file
// naming one or more compile targets and an optional shared postprocess
// command line.
type Config struct {
	Targets     map[string]TargetConfig `json:"targets"`
	Postprocess []string                `json:"postprocess,omitempty"`
}

// LoadConfig reads and validates the watch configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: reading watch config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("project: parsing watch config: %w", err)
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("project: watch config names no targets")
	}
	for name, t := range cfg.Targets {
		if len(t.Inputs) == 0 {
			return nil, fmt.Errorf("project: target %q names no inputs", name)
		}
		if t.Output == "" {
			return nil, fmt.Errorf("project: target %q names no output", name)
		}
	}
	return &cfg, nil
}
