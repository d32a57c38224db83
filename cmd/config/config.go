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

// Package config is the viper-bound CLI configuration document: the
// settings that govern how `hot` is invoked, as opposed to the watch
// configuration it reads (project.Config, §6.1), which describes the
// targets themselves.
package config

// WatchforgeConfig mirrors the fields bound to viper in cmd/root.go and
// cmd/hot.go. Values set here come from flags, the optional
// .config/watchforge.yaml file, or environment variables (AutomaticEnv).
type WatchforgeConfig struct {
	ProjectDir string `mapstructure:"projectDir" yaml:"projectDir"`
	ConfigFile string `mapstructure:"configFile" yaml:"configFile"`

	// WatchConfig is the path to the watch configuration document (§6.1),
	// relative to ProjectDir unless absolute.
	WatchConfig string `mapstructure:"watchConfig" yaml:"watchConfig"`

	// Compiler is the compiler binary and fixed base arguments the
	// compiler driver invokes (§4 preamble: "the compiler invocation
	// itself" is an external collaborator; this is how the CLI tells the
	// driver which external binary to run).
	Compiler []string `mapstructure:"compiler" yaml:"compiler"`

	// PostprocessHost is the script-host process the postprocess pool
	// spawns workers from (§4.5); only read when the watch config sets a
	// postprocess command.
	PostprocessHost []string `mapstructure:"postprocessHost" yaml:"postprocessHost"`

	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

func (c *WatchforgeConfig) Clone() *WatchforgeConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Compiler != nil {
		clone.Compiler = append([]string(nil), c.Compiler...)
	}
	if c.PostprocessHost != nil {
		clone.PostprocessHost = append([]string(nil), c.PostprocessHost...)
	}
	return &clone
}
