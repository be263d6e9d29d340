package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// SetupSSEHeaders sets the response headers for a Server-Sent Events stream.
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// SendSSEChunk marshals the payload and writes it as one SSE data frame.
func SendSSEChunk(w http.ResponseWriter, flusher http.Flusher, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal sse payload: %v", err)
		return
	}
	SendSSEData(w, flusher, data)
}

// SendSSEData writes pre-marshaled JSON as one SSE data frame.
func SendSSEData(w http.ResponseWriter, flusher http.Flusher, data []byte) {
	if _, err := w.Write([]byte("data: ")); err != nil {
		log.Printf("failed to write sse prefix: %v", err)
		return
	}
	if _, err := w.Write(data); err != nil {
		log.Printf("failed to write sse payload: %v", err)
		return
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		log.Printf("failed to write sse terminator: %v", err)
		return
	}
	flusher.Flush()
}
