package types

// Observation is one fresh weather reading for a location. Ephemeral: produced
// per evaluation, never persisted.
// TempF is in Fahrenheit (the provider is queried with imperial units).
// ConditionIDs are the provider's numeric weather-condition codes; an empty
// slice is valid and means no reported condition.
type Observation struct {
	TempF        float64
	ConditionIDs []int
}

// UserFailure records why one user's record failed during a batch cycle.
type UserFailure struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// Summary is the outcome of one batch cycle over all stored users.
// Skipped counts records the store could not even decrypt or parse; those are
// also included in Failed.
type Summary struct {
	Processed int           `json:"processed"`
	Activated int           `json:"activated"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Failures  []UserFailure `json:"failures,omitempty"`
}
