// Package email defines the outbound message model handed to delivery providers.
package email

import (
	"github.com/shineum/mailkit-lite/internal/mime"
)

// Message is one outbound email. It is built per send and discarded afterwards.
//
// For multipart content types the body comes from Parts and Body is ignored;
// otherwise Body is encoded with TransferEncoding.
type Message struct {
	From             string
	To               string
	Subject          string
	ContentType      mime.ContentType
	TransferEncoding mime.TransferEncoding
	Body             string
	Parts            []mime.Part
}

// Encode renders the message as a MIME byte stream.
func (m *Message) Encode() ([]byte, error) {
	return mime.Encode(m.From, m.To, m.Subject, m.TransferEncoding, m.ContentType, m.Body, m.Parts)
}
