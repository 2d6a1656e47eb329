package models

import "time"

// WizardSession describes one mounted wizard held by the session service.
type WizardSession struct {
	ID           string        `json:"id"`
	Institution  Institution   `json:"institution"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastActivity time.Time     `json:"lastActivity"`
	IdleTTL      time.Duration `json:"-"`
}

// IsExpired reports whether the session has been idle longer than its TTL.
// A zero TTL never expires.
func (s *WizardSession) IsExpired(now time.Time) bool {
	if s.IdleTTL <= 0 {
		return false
	}
	return now.Sub(s.LastActivity) > s.IdleTTL
}

// UpdateActivity records use of the session at now.
func (s *WizardSession) UpdateActivity(now time.Time) {
	s.LastActivity = now
}
