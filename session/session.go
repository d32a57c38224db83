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

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Upgrader is the shared websocket upgrader. CheckOrigin mirrors the
// teacher's local-origin allowance (serve/websocket.go's isLocalOrigin):
// browser dev tooling commonly connects from a same-host dev server.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     isLocalOrigin,
}

func isLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := originURL.Hostname()
	requestHost := r.Host
	if i := strings.IndexByte(requestHost, ':'); i != -1 {
		requestHost = requestHost[:i]
	}
	switch {
	case host == requestHost:
		return true
	case host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "[::1]":
		return true
	case strings.HasSuffix(host, ".localhost"):
		return true
	default:
		return false
	}
}

// ID uniquely identifies one connected session.
type ID uint64

// Session is one connected browser client (§4.7): zero, one, or many exist
// per target.
type Session struct {
	ID          ID
	TargetName  string
	LastCompiledAt int64

	conn *websocket.Conn
	mu   sync.Mutex
}

// NewSession wraps an upgraded connection.
func NewSession(id ID, targetName string, conn *websocket.Conn) *Session {
	return &Session{ID: id, TargetName: targetName, conn: conn}
}

// Send writes one message, serializing concurrent writers.
func (s *Session) Send(msg ServerMessage) error {
	data, err := msg.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Registry is the bidirectional target↔sessions map described in §9: no
// strong back-links live on Session itself, so removal is symmetric and
// cannot leak a reference to a closed connection.
type Registry struct {
	mu            sync.RWMutex
	byTarget      map[string]map[ID]*Session
	targetOfSession map[ID]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byTarget:        make(map[string]map[ID]*Session),
		targetOfSession: make(map[ID]string),
	}
}

// Add registers s under its target.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byTarget[s.TargetName] == nil {
		r.byTarget[s.TargetName] = make(map[ID]*Session)
	}
	r.byTarget[s.TargetName][s.ID] = s
	r.targetOfSession[s.ID] = s.TargetName
}

// Remove drops a session from both sides of the registry.
func (r *Registry) Remove(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.targetOfSession[id]
	if !ok {
		return
	}
	delete(r.targetOfSession, id)
	if sessions, ok := r.byTarget[target]; ok {
		delete(sessions, id)
		if len(sessions) == 0 {
			delete(r.byTarget, target)
		}
	}
}

// ForTarget returns the live sessions subscribed to a target.
func (r *Registry) ForTarget(targetName string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := r.byTarget[targetName]
	out := make([]*Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s)
	}
	return out
}

// HasSession reports whether targetName has at least one live session.
func (r *Registry) HasSession(targetName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTarget[targetName]) > 0
}
