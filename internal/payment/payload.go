// Package payment implements the invoice payload codec and the payment
// validation rules for Telegram Stars purchases.
package payment

import (
	"encoding/json"
	"errors"
)

// ErrInvalidPayload is returned when a round-tripped invoice payload
// cannot be decoded into a well-typed Payload.
var ErrInvalidPayload = errors.New("invalid invoice payload")

// Payload correlates a payment confirmation back to the invoice that
// produced it. ID and CorrelationID are logging metadata only and are
// never validated against anything.
type Payload struct {
	Amount        int64
	UserID        int64
	ID            string
	CorrelationID string
}

type wirePayload struct {
	Amount        int64  `json:"amount"`
	UserID        int64  `json:"user_id"`
	ID            string `json:"id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Option augments an encoded payload with optional metadata.
type Option func(*wirePayload)

func WithID(id string) Option {
	return func(w *wirePayload) { w.ID = id }
}

func WithCorrelationID(correlationID string) Option {
	return func(w *wirePayload) { w.CorrelationID = correlationID }
}

// BuildPayload encodes the amount/user pair (plus optional metadata) into
// the opaque token embedded in an outbound invoice.
func BuildPayload(amount, userID int64, opts ...Option) string {
	w := wirePayload{Amount: amount, UserID: userID}
	for _, opt := range opts {
		opt(&w)
	}
	// Marshal of a flat struct cannot fail.
	b, _ := json.Marshal(w)
	return string(b)
}

type rawPayload struct {
	Amount        json.RawMessage `json:"amount"`
	UserID        json.RawMessage `json:"user_id"`
	ID            json.RawMessage `json:"id"`
	CorrelationID json.RawMessage `json:"correlation_id"`
}

// ParsePayload decodes a token echoed back by Telegram. The structure is
// checked strictly: the payload must be a JSON object, amount and user_id
// must be integers, id (when present) must be a string or an integer and
// correlation_id (when present) must be a string. A forged or corrupted
// token must fail here rather than coerce into a plausible payload.
func ParsePayload(token string) (*Payload, error) {
	var raw rawPayload
	if err := json.Unmarshal([]byte(token), &raw); err != nil {
		return nil, ErrInvalidPayload
	}

	amount, err := decodeInt(raw.Amount)
	if err != nil {
		return nil, err
	}
	userID, err := decodeInt(raw.UserID)
	if err != nil {
		return nil, err
	}

	id, err := decodeStringOrInt(raw.ID)
	if err != nil {
		return nil, ErrInvalidPayload
	}
	correlationID, err := decodeString(raw.CorrelationID)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	return &Payload{
		Amount:        amount,
		UserID:        userID,
		ID:            id,
		CorrelationID: correlationID,
	}, nil
}

// decodeInt accepts only a bare JSON integer. A quoted number is a
// string on the wire and must not coerce.
func decodeInt(raw json.RawMessage) (int64, error) {
	if isAbsent(raw) || raw[0] == '"' {
		return 0, ErrInvalidPayload
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, ErrInvalidPayload
	}
	v, err := n.Int64()
	if err != nil {
		return 0, ErrInvalidPayload
	}
	return v, nil
}

func decodeStringOrInt(raw json.RawMessage) (string, error) {
	if isAbsent(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", ErrInvalidPayload
	}
	if _, err := n.Int64(); err != nil {
		return "", ErrInvalidPayload
	}
	return n.String(), nil
}

func decodeString(raw json.RawMessage) (string, error) {
	if isAbsent(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", ErrInvalidPayload
	}
	return s, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
