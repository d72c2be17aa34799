package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

// mockWebSocketConn records the messages written to it.
type mockWebSocketConn struct {
	sentMessages []sentMessage
}

type sentMessage struct {
	messageType int
	data        []byte
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	m.sentMessages = append(m.sentMessages, sentMessage{messageType: messageType, data: data})
	return nil
}

func (m *mockWebSocketConn) responses(t *testing.T) []WebSocketReadResponse {
	t.Helper()
	out := make([]WebSocketReadResponse, len(m.sentMessages))
	for i, msg := range m.sentMessages {
		assert.Equal(t, websocket.TextMessage, msg.messageType)
		require.NoError(t, json.Unmarshal(msg.data, &out[i]))
	}
	return out
}

func TestSendWebSocketError(t *testing.T) {
	s := &Server{}
	conn := &mockWebSocketConn{}

	s.sendWebSocketError(conn, "7", "invalid_request", "bad things")

	got := conn.responses(t)
	require.Len(t, got, 1)
	assert.Equal(t, "error", got[0].Type)
	assert.Equal(t, "error", got[0].Status)
	assert.Equal(t, "invalid_request", got[0].ErrorType)
	assert.Equal(t, "bad things", got[0].Error)
	assert.Equal(t, "7", got[0].RequestID)
}

func TestHandleWebSocketRequest_Read(t *testing.T) {
	s := newFakeServer(t, &fakeBackend{results: []barcode.Result{fixedResult("hello")}}, nil)
	conn := &mockWebSocketConn{}

	s.handleWebSocketRequest(t.Context(), conn, WebSocketReadRequest{Name: "a.png", Image: blankPNG(t)})

	got := conn.responses(t)
	require.Len(t, got, 2)
	assert.Equal(t, "processing", got[0].Status)
	assert.Equal(t, "completed", got[1].Status)
	assert.Equal(t, "read_response", got[1].Type)
	assert.Equal(t, got[0].RequestID, got[1].RequestID)

	result, ok := got[1].Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a.png", result["file"])
	symbols, ok := result["symbols"].([]any)
	require.True(t, ok)
	require.Len(t, symbols, 1)
	assert.Equal(t, "hello", symbols[0].(map[string]any)["value"])
}

func TestHandleWebSocketRequest_Detect(t *testing.T) {
	s := newTestServer(t, nil)
	conn := &mockWebSocketConn{}

	s.handleWebSocketRequest(t.Context(), conn, WebSocketReadRequest{Type: "detect", Image: blankPNG(t)})

	got := conn.responses(t)
	require.Len(t, got, 2)
	assert.Equal(t, "detect_response", got[1].Type)
	assert.Equal(t, "completed", got[1].Status)
	result, ok := got[1].Result.(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 320, result["width"], 0)
	assert.InDelta(t, 240, result["height"], 0)
}

func TestHandleWebSocketRequest_Errors(t *testing.T) {
	s := newFakeServer(t, &fakeBackend{}, nil)

	tests := []struct {
		name      string
		req       WebSocketReadRequest
		errorType string
		contains  string
	}{
		{"unknown type", WebSocketReadRequest{Type: "ocr", Image: []byte{1}}, "invalid_request", "Unsupported request type"},
		{"no image", WebSocketReadRequest{Type: "read"}, "invalid_request", "No image data"},
		{"undecodable", WebSocketReadRequest{Image: []byte("nope")}, "processing_error", "Failed to decode image"},
		{"bad formats", WebSocketReadRequest{Image: blankPNG(t), Formats: []string{"bogus"}}, "invalid_request", "unknown barcode format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mockWebSocketConn{}
			s.handleWebSocketRequest(t.Context(), conn, tt.req)

			got := conn.responses(t)
			require.NotEmpty(t, got)
			last := got[len(got)-1]
			assert.Equal(t, "error", last.Status)
			assert.Equal(t, tt.errorType, last.ErrorType)
			assert.Contains(t, last.Error, tt.contains)
		})
	}
}

// readUntilDone reads responses until one is completed or failed.
func readUntilDone(t *testing.T, conn *websocket.Conn) WebSocketReadResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	for {
		var resp WebSocketReadResponse
		require.NoError(t, conn.ReadJSON(&resp))
		if resp.Status != "processing" {
			return resp
		}
	}
}

func TestReadWebSocketHandler_EndToEnd(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/read"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	t.Run("binary frame", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, qrPNG(t)))
		resp := readUntilDone(t, conn)
		require.Equal(t, "completed", resp.Status, resp.Error)
		result := resp.Result.(map[string]any)
		symbols := result["symbols"].([]any)
		require.Len(t, symbols, 1)
		assert.Equal(t, "barscan", symbols[0].(map[string]any)["value"])
	})

	t.Run("json frame", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(WebSocketReadRequest{Type: "detect", Image: blankPNG(t)}))
		resp := readUntilDone(t, conn)
		assert.Equal(t, "completed", resp.Status)
		assert.Equal(t, "detect_response", resp.Type)
	})

	t.Run("malformed json", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
		resp := readUntilDone(t, conn)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "invalid_request", resp.ErrorType)
	})
}
