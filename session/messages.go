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

package session

import "encoding/json"

// ClientTag discriminates a client→server message (§4.7).
type ClientTag string

const (
	ClientChangedCompilationMode ClientTag = "ChangedCompilationMode"
	ClientFocusedTab             ClientTag = "FocusedTab"
	ClientExitRequested          ClientTag = "ExitRequested"
	clientBadJson                ClientTag = "BadJson"
)

// ClientMessage is a decoded client→server message.
type ClientMessage struct {
	Tag             ClientTag
	CompilationMode string // set when Tag == ClientChangedCompilationMode
}

// ParseClientMessage decodes a raw client message. Any tag not in the
// taxonomy decodes to ClientMessage{Tag: clientBadJson}.
func ParseClientMessage(raw []byte) ClientMessage {
	var envelope struct {
		Tag             string `json:"tag"`
		CompilationMode string `json:"compilationMode,omitempty"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ClientMessage{Tag: clientBadJson}
	}
	switch ClientTag(envelope.Tag) {
	case ClientChangedCompilationMode:
		return ClientMessage{Tag: ClientChangedCompilationMode, CompilationMode: envelope.CompilationMode}
	case ClientFocusedTab:
		return ClientMessage{Tag: ClientFocusedTab}
	case ClientExitRequested:
		return ClientMessage{Tag: ClientExitRequested}
	default:
		return ClientMessage{Tag: clientBadJson}
	}
}

// IsBadJson reports whether the message fell outside the taxonomy.
func (m ClientMessage) IsBadJson() bool { return m.Tag == clientBadJson }

// ServerTag discriminates a server→client message.
type ServerTag string

const (
	ServerConnecting           ServerTag = "Connecting"
	ServerWaitingForCompile    ServerTag = "WaitingForCompilation"
	ServerSuccessfullyCompiled ServerTag = "SuccessfullyCompiled"
	ServerCompilationError     ServerTag = "CompilationError"
	ServerUnexpectedError      ServerTag = "UnexpectedError"
	ServerArtifact             ServerTag = "Artifact"
	ServerFullReload           ServerTag = "FullReload"
)

// ServerMessage is an outbound message to one browser session.
type ServerMessage struct {
	Tag ServerTag `json:"tag"`

	// CompilationError / UnexpectedError
	Reason string `json:"reason,omitempty"`

	// Artifact
	Bytes        []byte   `json:"bytes,omitempty"`
	CompiledAt   int64    `json:"compiledAt,omitempty"`
	RecordFields []string `json:"recordFields,omitempty"`

	// FullReload
	ReloadReason ReloadReason `json:"reloadReason,omitempty"`
}

// Marshal encodes m as the wire JSON frame.
func (m ServerMessage) Marshal() ([]byte, error) { return json.Marshal(m) }
