// Package monitor broadcasts transfer progress over a websocket so a
// UI (or a second terminal) can watch a download or erase in
// progress. It implements protocol.ResultCallback as a pass-through
// observer: every event is forwarded to an underlying callback and
// also broadcast as JSON to connected clients.
package monitor

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/p00ya/vivian/protocol"
)

// Event is the JSON shape broadcast to websocket clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub tracks connected websocket clients and fans out events to all
// of them, dropping any client that falls behind.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// AddClient registers conn to receive future broadcasts.
func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

// RemoveClient unregisters and closes conn.
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// Broadcast sends event to every connected client concurrently,
// dropping clients whose write fails or times out.
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	var failedMu sync.Mutex
	var failed []*websocket.Conn

	for _, conn := range clients {
		wg.Add(1)
		go func(c *websocket.Conn) {
			defer wg.Done()
			c.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
			if err := c.WriteJSON(event); err != nil {
				failedMu.Lock()
				failed = append(failed, c)
				failedMu.Unlock()
			}
		}(conn)
	}
	wg.Wait()

	if len(failed) > 0 {
		h.mu.Lock()
		for _, conn := range failed {
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		}
		h.mu.Unlock()
	}
}

// Callback wraps an inner protocol.ResultCallback and broadcasts each
// event to hub as JSON before forwarding it. Embed
// protocol.NopResultCallback in inner if only some events matter.
type Callback struct {
	protocol.NopResultCallback
	hub   *Hub
	inner protocol.ResultCallback
}

// NewCallback constructs a Callback that broadcasts to hub and then
// forwards every event to inner.
func NewCallback(hub *Hub, inner protocol.ResultCallback) *Callback {
	return &Callback{hub: hub, inner: inner}
}

func (c *Callback) OnError(code protocol.ErrorCode, message string) {
	c.hub.Broadcast(Event{Type: "error", Payload: map[string]string{"code": code.String(), "message": message}})
	c.inner.OnError(code, message)
}

func (c *Callback) OnParseClock(posixTime int64) {
	c.hub.Broadcast(Event{Type: "clock", Payload: map[string]int64{"posixTime": posixTime}})
	c.inner.OnParseClock(posixTime)
}

func (c *Callback) OnParseDirectoryEntry(entry protocol.DirectoryEntry) {
	c.hub.Broadcast(Event{Type: "directory_entry", Payload: entry})
	c.inner.OnParseDirectoryEntry(entry)
}

func (c *Callback) OnFinishParsingDirectory() {
	c.hub.Broadcast(Event{Type: "directory_done", Payload: nil})
	c.inner.OnFinishParsingDirectory()
}

func (c *Callback) OnDownloadFile(index uint16, data []byte) {
	c.hub.Broadcast(Event{Type: "download_done", Payload: map[string]int{"index": int(index), "bytes": len(data)}})
	c.inner.OnDownloadFile(index, data)
}

func (c *Callback) OnEraseFile(index uint16, ok bool) {
	c.hub.Broadcast(Event{Type: "erase_done", Payload: map[string]interface{}{"index": index, "ok": ok}})
	c.inner.OnEraseFile(index, ok)
}

func (c *Callback) OnSetTime(ok bool) {
	c.hub.Broadcast(Event{Type: "set_time_done", Payload: map[string]bool{"ok": ok}})
	c.inner.OnSetTime(ok)
}

var _ protocol.ResultCallback = (*Callback)(nil)
