package security

import "time"

// SecurityConfig holds the tunables for authentication, rate limiting and
// input validation. Values follow OWASP ASVS recommendations.
type SecurityConfig struct {
	// Password storage
	BcryptCost int

	// Session management
	SessionTimeout    time.Duration
	SessionCookieName string
	SessionSecure     bool
	SessionHTTPOnly   bool
	SessionSameSite   string

	// Brute force protection
	LoginRateLimit          int
	AccountLockoutThreshold int
	AccountLockoutDuration  time.Duration

	// Input validation limits
	MaxUploadSize    int // order-letter attachment ceiling, bytes
	MaxSubFormBytes  int // single sub-form payload ceiling, bytes
	MaxRemarksLength int
	QueryTimeout     time.Duration

	// Endpoint rate limits
	RateLimitSubmit   int // new applications per hour per employee
	RateLimitSubForm  int // sub-form saves per minute per employee
	RateLimitDownload int // certificate downloads per minute per employee
}

// DefaultSecurityConfig returns the recommended defaults.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		BcryptCost: 12,

		SessionTimeout:    8 * time.Hour,
		SessionCookieName: "nodues_session",
		SessionSecure:     true,
		SessionHTTPOnly:   true,
		SessionSameSite:   "Lax",

		LoginRateLimit:          5,
		AccountLockoutThreshold: 10,
		AccountLockoutDuration:  30 * time.Minute,

		MaxUploadSize:    10 * 1024 * 1024,
		MaxSubFormBytes:  256 * 1024,
		MaxRemarksLength: 2000,
		QueryTimeout:     30 * time.Second,

		RateLimitSubmit:   3,
		RateLimitSubForm:  30,
		RateLimitDownload: 20,
	}
}
