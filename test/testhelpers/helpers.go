// Package testhelpers provides common utilities and helper functions for testing the Parlor server.
//
// This package contains reusable test utilities that are shared across integration tests.
// It provides functions for creating test servers, speaking the event envelope protocol
// over WebSocket connections, and asserting response properties to reduce code
// duplication in test files.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Envelope mirrors the wire format of every event the server sends and
// receives: an event name plus an event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// UniqueRoom returns a room name no other test can collide with. The hub is
// process-wide in integration tests, so every test seats its clients in its
// own rooms.
func UniqueRoom(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// WebSocketURL rewrites an httptest server URL into its /ws WebSocket endpoint.
func WebSocketURL(serverURL string) string {
	return strings.Replace(serverURL, "http://", "ws://", 1) + "/ws"
}

// ConnectWebSocket dials the server's WebSocket endpoint using the server's
// own URL as the Origin header, which the default test configuration allows.
// The connection is closed automatically when the test finishes.
func ConnectWebSocket(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()

	conn, _, err := DialWebSocketWithOrigin(serverURL, serverURL)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// DialWebSocketWithOrigin dials the server's WebSocket endpoint with an
// explicit Origin header, returning the handshake response for inspection.
// Origin enforcement tests use this directly.
func DialWebSocketWithOrigin(serverURL, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	return dialer.Dial(WebSocketURL(serverURL), headers)
}

// Emit sends one event envelope over the connection.
func Emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	payload := struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data}

	if err := conn.WriteJSON(payload); err != nil {
		t.Fatalf("Failed to emit %q event: %v", event, err)
	}
}

// NextEnvelope reads the next event from the connection, failing the test if
// nothing arrives before the timeout.
func NextEnvelope(t *testing.T, conn *websocket.Conn, timeout time.Duration) Envelope {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("Failed to read event envelope: %v", err)
	}
	return env
}

// WaitForEvent reads events until one with the given name arrives, failing
// the test on timeout. Events of other types are discarded, so use
// NextEnvelope instead when the test asserts ordering.
func WaitForEvent(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) Envelope {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for %q event", event)
		}
		env := NextEnvelope(t, conn, remaining)
		if env.Event == event {
			return env
		}
	}
}

// DecodeData unmarshals the envelope payload into v.
func DecodeData(t *testing.T, env Envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("Failed to decode %q payload: %v", env.Event, err)
	}
}

// JoinRoom emits a join event and waits for the roster refresh that confirms
// the seat, discarding the interleaved join notice.
func JoinRoom(t *testing.T, conn *websocket.Conn, username, room string) {
	t.Helper()

	Emit(t, conn, "join", map[string]string{"username": username, "room": room})
	WaitForEvent(t, conn, "room-users", 2*time.Second)
}

// RosterUsernames decodes a room-users payload into the ordered list of usernames.
func RosterUsernames(t *testing.T, env Envelope) []string {
	t.Helper()

	var users []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	DecodeData(t, env, &users)

	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	return names
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
