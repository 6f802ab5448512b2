package main

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/soundtrace/soundtrace/internal/recognizer"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleRecognize serves WS /ws/recognize: the client opens a connection,
// optionally sends a {"type":"config","sampleRate":N} text frame, then
// streams raw little-endian float32 PCM as binary frames. The server
// pushes back listening/analyzing/match_found/no_match JSON status frames
// as the recognizer state machine advances.
func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sampleRate := 44100
	var session *recognizer.Session
	defer func() {
		if session != nil {
			session.Close()
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.TextMessage:
			var cfg wsConfigMessage
			if json.Unmarshal(data, &cfg) != nil {
				continue
			}
			if cfg.Type == "stop" {
				return
			}
			if cfg.Type == "config" && cfg.SampleRate > 0 {
				sampleRate = cfg.SampleRate
			}

		case websocket.BinaryMessage:
			if session == nil {
				session = s.engine.NewSession(sampleRate)
				go s.pumpEvents(conn, session)
			}
			samples := decodeFloat32LE(data)
			if err := session.Feed(samples); err != nil {
				s.log.Warnf("recognize session %s: feed error: %v", session.ID(), err)
				return
			}
		}
	}
}

// pumpEvents drains a session's Events() and writes them to the socket as
// JSON frames until the session closes.
func (s *Server) pumpEvents(conn *websocket.Conn, session *recognizer.Session) {
	for ev := range session.Events() {
		msg := wsStatusMessage{Status: string(ev.Status), Duration: ev.DurationSec, Message: ev.Message}
		if ev.Match != nil {
			song := songToDTO(ev.Match.Song)
			msg.Song = &song
			msg.Confidence = ev.Match.Confidence
			msg.Analysis = ev.Match.Analysis
		}
		if ev.Err != nil {
			msg.Message = ev.Err.Error()
		}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// decodeFloat32LE interprets a binary WS frame as little-endian float32
// PCM samples, the wire format the original streaming client used.
func decodeFloat32LE(data []byte) []float64 {
	n := len(data) / 4
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		out[i] = float64(math.Float32frombits(bits))
	}
	return out
}
