package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
)

// writeTimeout bounds each websocket write.
const writeTimeout = 10 * time.Second

// handleProgressWS streams progress records for one upload over a websocket.
// The current record is sent immediately, followed by each update; the
// connection closes cleanly after the terminal record.
func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("uploadId")
	if _, ok := s.pipeline.Progress().Peek(uploadID); !ok {
		respondError(w, http.StatusNotFound, "unknown upload", nil)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{ //nolint:staticcheck
		OriginPatterns: s.wsOrigins,
	})
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted") //nolint:errcheck

	updates, cancel := s.pipeline.Progress().Subscribe(uploadID)
	defer cancel()

	// Drain reads so client-side close is noticed.
	readerCtx := conn.CloseRead(r.Context())

	for {
		select {
		case record, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "ingestion finished") //nolint:errcheck
				return
			}
			data, err := json.Marshal(record)
			if err != nil {
				log.Printf("Failed to marshal progress record: %v", err)
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(readerCtx, writeTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data) //nolint:staticcheck
			cancelWrite()
			if err != nil {
				return
			}
			if record.Stage.Terminal() {
				conn.Close(websocket.StatusNormalClosure, "ingestion finished") //nolint:errcheck
				return
			}
		case <-readerCtx.Done():
			return
		}
	}
}
