package types

import "fmt"

// UserConfig is stored per user in the key-value backend.
// UserID is the immutable key. SecretToken is the user's Slack token; it is
// sealed by the credential cipher before it ever touches the backend and is in
// plaintext only inside process memory between decrypt and use.
// Destination is the Slack user whose profile gets the status.
// Location is the place query passed verbatim to the weather provider
// (e.g. "Boston,US").
// ThresholdF of 0 means "use the process-wide default". RequireDry gates
// activation on the absence of precipitation.
type UserConfig struct {
	UserID      string  `json:"user_id"`
	SecretToken string  `json:"secret_token"`
	Destination string  `json:"destination"`
	Location    string  `json:"location"`
	ThresholdF  float64 `json:"threshold_f,omitempty"`
	RequireDry  bool    `json:"require_dry,omitempty"`
}

func (c UserConfig) Validate() error {
	if c.UserID == "" {
		return Err(ErrValidation, nil, "user_id is required")
	}
	if c.SecretToken == "" {
		return Err(ErrValidation, nil, "secret_token is required")
	}
	if c.Destination == "" {
		return Err(ErrValidation, nil, "destination is required")
	}
	if c.Location == "" {
		return Err(ErrValidation, nil, "location is required")
	}
	if c.ThresholdF < 0 {
		return Err(ErrValidation, nil, "threshold_f must be non-negative, 0 for the default")
	}
	return nil
}

// StoredUserConfig is the shape that actually lands in the backend: identical
// to UserConfig except the token field holds the sealed envelope. Kept as a
// separate type so a plaintext token cannot be persisted by accident.
type StoredUserConfig struct {
	UserID          string  `json:"user_id"`
	SealedToken     string  `json:"sealed_token"`
	Destination     string  `json:"destination"`
	Location        string  `json:"location"`
	ThresholdF      float64 `json:"threshold_f,omitempty"`
	RequireDry      bool    `json:"require_dry,omitempty"`
	EnvelopeVersion int     `json:"envelope_version"`
}

func (c StoredUserConfig) String() string {
	// No token material, sealed or not, in log output.
	return fmt.Sprintf("StoredUserConfig{user_id=%s destination=%s location=%s}",
		c.UserID, c.Destination, c.Location)
}
