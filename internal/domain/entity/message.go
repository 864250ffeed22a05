package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage marks an inbound body that can never be processed
// (poison message). The consumer drops these without retry.
var ErrMalformedMessage = errors.New("malformed processing message")

// VideoProcessingMessage is the inbound event requesting work on one video.
type VideoProcessingMessage struct {
	VideoID  string `json:"itemId"`
	VideoKey string `json:"sourceKey"`
	Title    string `json:"title,omitempty"`
}

// DecodeProcessingMessage parses an inbound body and enforces the required
// fields. Any failure here classifies the message as poison.
func DecodeProcessingMessage(body []byte) (VideoProcessingMessage, error) {
	var msg VideoProcessingMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.VideoID == "" {
		return msg, fmt.Errorf("%w: missing itemId", ErrMalformedMessage)
	}
	if msg.VideoKey == "" {
		return msg, fmt.Errorf("%w: missing sourceKey", ErrMalformedMessage)
	}
	return msg, nil
}

const (
	NotificationDone  = "Done"
	NotificationError = "Error"
)

// StatusNotification is the outbound terminal-state message. Field names
// follow the contract consumed by the notification service.
type StatusNotification struct {
	Title     string `json:"title"`
	Status    string `json:"status"` // NotificationDone or NotificationError
	Message   string `json:"mensagem"`
	UserEmail string `json:"emailUsuario"`
	UserName  string `json:"nomeUsuario"`
}
