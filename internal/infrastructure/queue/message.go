package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProcessRequest is the payload of a process-request message on every
// queue backend.
type ProcessRequest struct {
	DocumentID  string    `json:"document_id"`
	RequestedAt time.Time `json:"requested_at"`
}

func EncodeProcessRequest(documentID string) ([]byte, error) {
	return json.Marshal(ProcessRequest{DocumentID: documentID, RequestedAt: time.Now().UTC()})
}

// DecodeProcessRequest also accepts a bare document id for messages
// published by older producers.
func DecodeProcessRequest(data []byte) (ProcessRequest, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return ProcessRequest{}, errors.New("empty process request")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return ProcessRequest{DocumentID: trimmed}, nil
	}
	var req ProcessRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ProcessRequest{}, fmt.Errorf("decode process request: %w", err)
	}
	if req.DocumentID == "" {
		return ProcessRequest{}, errors.New("process request without document id")
	}
	return req, nil
}
