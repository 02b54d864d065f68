package dispatch

import "time"

// Config defines dispatch-related settings.
type Config struct {
	// OfferTimeoutSeconds bounds how long a candidate may sit on an offer
	// before the supervisory timer declines on their behalf.
	OfferTimeoutSeconds int `json:"offer_timeout_seconds"`
	// RequestExpirySeconds bounds the whole matching attempt.
	RequestExpirySeconds int `json:"request_expiry_seconds"`
}

// Defaults from the product flow: 5 s per candidate, 40 s per request.
const (
	DefaultOfferTimeout  = 5 * time.Second
	DefaultRequestExpiry = 40 * time.Second
)

// OfferTimeout returns the configured per-offer window or the default.
func (c Config) OfferTimeout() time.Duration {
	if c.OfferTimeoutSeconds <= 0 {
		return DefaultOfferTimeout
	}
	return time.Duration(c.OfferTimeoutSeconds) * time.Second
}

// RequestExpiry returns the configured request lifetime or the default.
func (c Config) RequestExpiry() time.Duration {
	if c.RequestExpirySeconds <= 0 {
		return DefaultRequestExpiry
	}
	return time.Duration(c.RequestExpirySeconds) * time.Second
}
