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

// Package session implements the browser session protocol (§4.7): the
// connect handshake, the client/server message taxonomy, and the reload
// verdict algorithm. It is grounded on serve/websocket.go's connection
// wrapper and origin-check shape, retargeted from page-URL matching to
// target-name matching, and on serve/server_reload.go's verdict
// computation, retargeted from "file changed" reasons to the typed
// FullReload reasons this spec names.
package session

import (
	"fmt"
	"net/url"
	"strconv"
)

// Handshake is the parsed and validated connect request (§4.7).
type Handshake struct {
	TargetName string
	CompiledAt int64
	ToolVersion string
}

// BadUrl is returned when the request path is not the expected "/".
type BadUrl struct{ Path string }

func (e *BadUrl) Error() string { return fmt.Sprintf("session: unexpected path %q", e.Path) }

// ParamsDecodeError is returned when a query parameter is missing or
// malformed.
type ParamsDecodeError struct{ Param string }

func (e *ParamsDecodeError) Error() string {
	return fmt.Sprintf("session: query parameter %q failed to decode", e.Param)
}

// WrongVersion is returned when the client's toolVersion does not match
// the server's.
type WrongVersion struct {
	Client string
	Server string
}

func (e *WrongVersion) Error() string {
	return fmt.Sprintf("session: client tool version %q does not match server version %q", e.Client, e.Server)
}

// TargetNotFound is returned when targetName names no configured target.
type TargetNotFound struct {
	Requested string
	Enabled   []string
	Disabled  []string
}

func (e *TargetNotFound) Error() string {
	return fmt.Sprintf("session: target %q not found (enabled: %v, disabled: %v)", e.Requested, e.Enabled, e.Disabled)
}

// TargetDisabled is returned when targetName names a target the CLI
// filter disabled.
type TargetDisabled struct{ TargetName string }

func (e *TargetDisabled) Error() string {
	return fmt.Sprintf("session: target %q is disabled", e.TargetName)
}

// ParseHandshake validates path and query per §4.7's connect handshake
// rules. It does not check toolVersion or target existence; call
// ValidateVersion and ValidateTarget for those.
func ParseHandshake(path string, query url.Values) (*Handshake, error) {
	if path != "/" {
		return nil, &BadUrl{Path: path}
	}

	targetName := query.Get("targetName")
	if targetName == "" {
		return nil, &ParamsDecodeError{Param: "targetName"}
	}

	toolVersion := query.Get("toolVersion")
	if toolVersion == "" {
		return nil, &ParamsDecodeError{Param: "toolVersion"}
	}

	compiledAtStr := query.Get("compiledAt")
	compiledAt, err := strconv.ParseInt(compiledAtStr, 10, 64)
	if err != nil {
		return nil, &ParamsDecodeError{Param: "compiledAt"}
	}

	return &Handshake{TargetName: targetName, CompiledAt: compiledAt, ToolVersion: toolVersion}, nil
}

// ValidateVersion implements the toolVersion check.
func ValidateVersion(h *Handshake, serverVersion string) error {
	if h.ToolVersion != serverVersion {
		return &WrongVersion{Client: h.ToolVersion, Server: serverVersion}
	}
	return nil
}

// ValidateTarget implements the targetName existence/enabled check.
func ValidateTarget(h *Handshake, enabled, disabled []string) error {
	for _, name := range enabled {
		if name == h.TargetName {
			return nil
		}
	}
	for _, name := range disabled {
		if name == h.TargetName {
			return &TargetDisabled{TargetName: h.TargetName}
		}
	}
	return &TargetNotFound{Requested: h.TargetName, Enabled: enabled, Disabled: disabled}
}
