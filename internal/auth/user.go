package auth

import "encoding/json"

// User is the identity carried inside the signed "user" field.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	PhotoURL     string
	LanguageCode string
	IsPremium    bool
}

type rawUser struct {
	ID           json.RawMessage `json:"id"`
	Username     string          `json:"username"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	PhotoURL     string          `json:"photo_url"`
	LanguageCode string          `json:"language_code"`
	IsPremium    bool            `json:"is_premium"`
}

// decodeID accepts only a bare positive JSON integer. json.Number alone
// would also coerce a quoted number, which Telegram never sends.
func decodeID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || raw[0] == '"' {
		return 0, ErrInvalidInitData
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, ErrInvalidInitData
	}
	id, err := n.Int64()
	if err != nil || id <= 0 {
		return 0, ErrInvalidInitData
	}
	return id, nil
}

// User extracts the authenticated identity from a verified field set.
// The "user" field must be a JSON object with a positive integer id;
// anything else fails with ErrInvalidInitData.
func (f Fields) User() (*User, error) {
	userRaw, ok := f["user"]
	if !ok || userRaw == "" {
		return nil, ErrInvalidInitData
	}

	var raw rawUser
	if err := json.Unmarshal([]byte(userRaw), &raw); err != nil {
		return nil, ErrInvalidInitData
	}

	id, err := decodeID(raw.ID)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           id,
		Username:     raw.Username,
		FirstName:    raw.FirstName,
		LastName:     raw.LastName,
		PhotoURL:     raw.PhotoURL,
		LanguageCode: raw.LanguageCode,
		IsPremium:    raw.IsPremium,
	}, nil
}
