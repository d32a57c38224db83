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
	"go.watchforge.dev/watchforge/pathmodel"
	"go.watchforge.dev/watchforge/watch"
)

// Classifier builds the watcher's per-path decision table (§4.4) from a
// resolved Project: the watch-config file itself, every manifest's real
// path, and the reverse index from each input source to the target names
// it feeds.
func (p *Project) Classifier(configReal pathmodel.RealPath, manifestName string) watch.Classifier {
	c := watch.Classifier{
		ConfigPath:     configReal,
		Manifests:      make(map[pathmodel.RealPath]pathmodel.AbsolutePath),
		RelatedSources: make(map[pathmodel.RealPath][]string),
		Ignore:         p.IsIgnored,
	}
	if manifestName == "" {
		manifestName = defaultManifestName
	}

	for _, manifestDir := range p.manifestOrder {
		manifestFile, err := pathmodel.NewAbsolutePath(string(manifestDir), manifestName)
		if err != nil {
			continue
		}
		if real, err := manifestFile.Resolve(); err == nil {
			c.Manifests[real] = manifestDir
		}
	}

	for _, state := range p.AllOutputs() {
		for _, input := range state.Inputs {
			c.RelatedSources[input] = append(c.RelatedSources[input], state.TargetName)
		}
		for related := range state.AllRelatedSourcePaths {
			found := false
			for _, name := range c.RelatedSources[related] {
				if name == state.TargetName {
					found = true
					break
				}
			}
			if !found {
				c.RelatedSources[related] = append(c.RelatedSources[related], state.TargetName)
			}
		}
	}

	return c
}
