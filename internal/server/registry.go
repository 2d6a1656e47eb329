package server

import (
	"context"
	"sync"
	"time"

	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"
	"admissions-wizard/internal/wizard"
)

type session struct {
	meta       models.WizardSession
	controller *wizard.Controller
}

// Registry holds mounted wizards by session id and unmounts idle ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	idleTTL  time.Duration
	now      func() time.Time
	logger   logger.Logger
}

func NewRegistry(idleTTL time.Duration, log logger.Logger) *Registry {
	return &Registry{
		sessions: map[string]*session{},
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   log,
	}
}

// Put stores c under id. A controller already held under id is closed
// first, so results still in flight for it are discarded.
func (r *Registry) Put(id string, institution models.Institution, c *wizard.Controller) models.WizardSession {
	now := r.now()
	s := &session{
		meta: models.WizardSession{
			ID:           id,
			Institution:  institution,
			CreatedAt:    now,
			LastActivity: now,
			IdleTTL:      r.idleTTL,
		},
		controller: c,
	}

	r.mu.Lock()
	previous := r.sessions[id]
	r.sessions[id] = s
	r.mu.Unlock()

	if previous != nil {
		previous.controller.Close()
	}
	return s.meta
}

// Get returns the controller for id and marks the session active.
func (r *Registry) Get(id string) (*wizard.Controller, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	now := r.now()
	if s.meta.IsExpired(now) {
		delete(r.sessions, id)
		r.mu.Unlock()
		s.controller.Close()
		return nil, false
	}
	s.meta.UpdateActivity(now)
	r.mu.Unlock()
	return s.controller, true
}

// Remove unmounts id. It reports whether the session existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.controller.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep unmounts every expired session and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()
	var expired []*session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.meta.IsExpired(now) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.controller.Close()
		r.logger.Info("Idle wizard session unmounted", map[string]interface{}{
			"sessionId":   s.meta.ID,
			"institution": string(s.meta.Institution),
		})
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll unmounts every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*session{}
	r.mu.Unlock()

	for _, s := range sessions {
		s.controller.Close()
	}
}
