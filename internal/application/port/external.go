package port

import "context"

// QREncoder renders a deep-link string into a PNG image.
// Encoding always happens before the redemption transaction, never inside it.
type QREncoder interface {
	Encode(payload string) ([]byte, error)
}

// Messenger delivers a text message to a recipient identity, best effort.
// A failed delivery returns an error to the caller but must never abort or
// roll back the state that triggered it.
type Messenger interface {
	SendMessage(ctx context.Context, recipientID string, text string) error
}
