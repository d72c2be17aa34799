package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by corsOrigin on the HTTP routes
		return true
	},
}

// WebSocketReadRequest is a JSON text frame. Binary frames are treated as
// a "read" request for the raw image bytes they carry.
type WebSocketReadRequest struct {
	Type      string   `json:"type"` // "read" or "detect"
	Name      string   `json:"name,omitempty"`
	Image     []byte   `json:"image"`
	Formats   []string `json:"formats,omitempty"`
	TryHarder *bool    `json:"try_harder,omitempty"`
	Fallback  *bool    `json:"fallback,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketReadResponse is sent for every request.
type WebSocketReadResponse struct {
	Type      string      `json:"type"`
	Status    string      `json:"status"` // "processing", "completed", "error"
	Progress  float64     `json:"progress,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

var wsRequestSeq atomic.Int64

// readWebSocketHandler upgrades the connection and serves read requests
// until the client goes away.
func (s *Server) readWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	s.handleWebSocketConnection(ctx, conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024)

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch messageType {
		case websocket.BinaryMessage:
			s.handleWebSocketRequest(ctx, conn, WebSocketReadRequest{Type: "read", Image: data})
		case websocket.TextMessage:
			var req WebSocketReadRequest
			if err := json.Unmarshal(data, &req); err != nil {
				s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
				continue
			}
			s.handleWebSocketRequest(ctx, conn, req)
		}
	}
}

// handleWebSocketRequest runs one read or detect request.
func (s *Server) handleWebSocketRequest(ctx context.Context, conn WebSocketConnWriter, req WebSocketReadRequest) {
	requestID := strconv.FormatInt(wsRequestSeq.Add(1), 10)

	if req.Type == "" {
		req.Type = "read"
	}
	if req.Type != "read" && req.Type != "detect" {
		s.sendWebSocketError(conn, requestID, "invalid_request", "Unsupported request type: "+req.Type)
		return
	}
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
		return
	}
	uploadSizeBytes.Observe(float64(len(req.Image)))

	s.sendWebSocketResponse(conn, WebSocketReadResponse{
		Type:      req.Type + "_response",
		Status:    "processing",
		RequestID: requestID,
	})

	img, _, err := utils.DecodeImageBytes(req.Image)
	if err != nil {
		recordFailure("websocket")
		s.sendWebSocketError(conn, requestID, "processing_error", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}
	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		recordFailure("websocket")
		s.sendWebSocketError(conn, requestID, "invalid_request", err.Error())
		return
	}

	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	var result interface{}
	if req.Type == "detect" {
		det, derr := detector.NewDetector(s.detectorOpts)
		err = derr
		if err == nil {
			rects := det.DetectImage(img)
			b := img.Bounds()
			result = detector.NewDetectionResult(rects, b.Dx(), b.Dy())
			regionsDetected.WithLabelValues("websocket").Observe(float64(len(rects)))
			scanRequestsTotal.WithLabelValues("websocket", "success").Inc()
			scanProcessingDuration.WithLabelValues("websocket").Observe(time.Since(start).Seconds())
		}
	} else {
		formats, perr := barcode.ParseFormats(req.Formats)
		if perr != nil {
			s.sendWebSocketError(conn, requestID, "invalid_request", perr.Error())
			return
		}
		rd, rerr := s.readerForRequest(&RequestConfig{Formats: formats, TryHarder: req.TryHarder, Fallback: req.Fallback})
		if rerr != nil {
			s.sendWebSocketError(conn, requestID, "processing_error", rerr.Error())
			return
		}
		res, rerr := rd.Read(ctx, img)
		err = rerr
		if err == nil {
			res.File = req.Name
			recordRead("websocket", res, time.Since(start))
			result = res
		}
	}
	if err != nil {
		recordFailure("websocket")
		s.sendWebSocketError(conn, requestID, "processing_error", err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketReadResponse{
		Type:      req.Type + "_response",
		Status:    "completed",
		Progress:  1.0,
		Result:    result,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketReadResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketReadResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
