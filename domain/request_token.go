package domain

// RequestToken is the OAuth 1.0a temporary credential pair issued by a
// provider before the user authorizes it, together with the state that has
// to survive the round trip to the provider.
//
// Values returned by the codec are owned by the caller and share nothing
// with the buffer they were decoded from. Treat them as read-only.
type RequestToken struct {
	Token             string      `json:"token"              yaml:"token"`
	TokenSecret       string      `json:"token_secret"       yaml:"token_secret"`
	CallbackConfirmed bool        `json:"callback_confirmed" yaml:"callback_confirmed"`
	Properties        *Properties `json:"properties"         yaml:"properties"`
}

// NewRequestToken builds a token. A nil bag is replaced by an empty one.
func NewRequestToken(token, secret string, callbackConfirmed bool, props *Properties) *RequestToken {
	if props == nil {
		props = NewProperties()
	}
	return &RequestToken{
		Token:             token,
		TokenSecret:       secret,
		CallbackConfirmed: callbackConfirmed,
		Properties:        props,
	}
}

// Equal compares all four fields. A nil bag equals an empty one.
func (t *RequestToken) Equal(other *RequestToken) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Token == other.Token &&
		t.TokenSecret == other.TokenSecret &&
		t.CallbackConfirmed == other.CallbackConfirmed &&
		t.Properties.Equal(other.Properties)
}
