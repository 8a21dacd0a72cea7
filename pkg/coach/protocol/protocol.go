package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	TypeInit         = "init"
	TypeFrame        = "frame"
	TypeInitResponse = "init_response"
	TypeWarning      = "warning"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// ClientInit starts (or restarts) a coaching session.
type ClientInit struct {
	Type        string `json:"type"`
	Mode        string `json:"mode"`
	AsanaIDs    []int  `json:"asanaIds"`
	RoutineName string `json:"routineName,omitempty"`
}

// ClientFrame carries one camera frame. ImageData is base64, optionally with a
// data-URI prefix.
type ClientFrame struct {
	Type      string `json:"type,omitempty"`
	ImageData string `json:"imageData"`
}

func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}

	switch strings.TrimSpace(envelope.Type) {
	case TypeInit:
		var msg ClientInit
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid init message", "")
		}
		if strings.TrimSpace(msg.Mode) == "" {
			return nil, badRequest("init.mode is required", "mode")
		}
		msg.Type = TypeInit
		return msg, nil
	case "", TypeFrame:
		var msg ClientFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid frame message", "")
		}
		if strings.TrimSpace(msg.ImageData) == "" {
			return nil, badRequest("Invalid data", "imageData")
		}
		msg.Type = TypeFrame
		return msg, nil
	default:
		return nil, badRequest("unsupported message type", "type")
	}
}

// DecodeImageData strips an optional "data:...;base64," prefix and decodes
// the remaining payload.
func DecodeImageData(raw string) ([]byte, error) {
	payload := strings.TrimSpace(raw)
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	if payload == "" {
		return nil, badRequest("Image decode error: empty payload", "imageData")
	}
	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		img, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil {
		return nil, badRequest(fmt.Sprintf("Image decode error: %v", err), "imageData")
	}
	return img, nil
}

type ServerInitResponse struct {
	Type      string `json:"type"`
	AudioData string `json:"audio_data"`
	PoseName  string `json:"pose_name"`
}

// ServerFeedback is the per-frame reply. Data is the outcome code.
type ServerFeedback struct {
	Data       int      `json:"data"`
	Confidence *float64 `json:"confidence,omitempty"`
	PoseName   string   `json:"pose_name,omitempty"`
	AudioData  string   `json:"audio_data"`
}

type ServerError struct {
	Error string `json:"error"`
}

type ServerWarning struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
