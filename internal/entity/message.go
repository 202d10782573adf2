package entity

import "errors"

var ErrUnknownMessageType = errors.New("unknown message type")

const MessageTypeEmail = "email"

// Message is an outbound notification, published on the notification topic
// and delivered by the notifier.
type Message struct {
	Type        string   `json:"type"`
	Subject     string   `json:"subject"`
	Message     string   `json:"message"`
	ContentType string   `json:"content_type,omitempty"`
	Recipients  []string `json:"recipients"`
}
