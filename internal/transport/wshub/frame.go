package wshub

import (
	"encoding/json"
	"fmt"
)

// frame is one message on a companion connection. Payloads are short text
// values (identifiers, "1"/"0" flags), so they travel as a plain string.
type frame struct {
	// Path routes the frame to a listener.
	Path string `json:"path"`
	// Payload is the message body.
	Payload string `json:"payload,omitempty"`
}

// encodeFrame serializes a frame for the wire.
func encodeFrame(path string, payload []byte) ([]byte, error) {
	data, err := json.Marshal(frame{Path: path, Payload: string(payload)})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	return data, nil
}

// decodeFrame parses a wire message. Frames without a path are rejected.
func decodeFrame(data []byte) (frame, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return frame{}, fmt.Errorf("decode frame: %w", err)
	}

	if f.Path == "" {
		return frame{}, fmt.Errorf("decode frame: missing path")
	}

	return f, nil
}
