package domain

import "time"

// FederationHealth reports the health of a federation source.
type FederationHealth struct {
	// IsFresh indicates whether the snapshot is from a successful recent
	// refresh.
	IsFresh bool `json:"is_fresh"`

	// LastSuccessTime is when descriptors were last successfully loaded.
	LastSuccessTime time.Time `json:"last_success_time,omitempty"`

	// LastError is the error from the most recent failed refresh, or nil
	// if the last refresh succeeded.
	LastError error `json:"last_error,omitempty"`

	// ProviderCount is the number of validated providers in the snapshot.
	ProviderCount int `json:"provider_count"`
}
