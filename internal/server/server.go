// Package server exposes mounted application wizards over HTTP. Each session
// owns one wizard controller; the draft it edits lives in the configured
// draft store under the session id.
package server

import (
	"context"
	"net/http"
	"time"

	"admissions-wizard/internal/catalog"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/draftstore"
	"admissions-wizard/internal/wizard"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Drafts           *draftstore.Factory
	Uploader         wizard.DocumentUploader
	Payments         wizard.PaymentGateway
	Submitter        wizard.ApplicationSubmitter
	PayloadValidator wizard.PayloadValidator
	Listeners        []wizard.SubmissionListener
	Catalog          *catalog.Catalog
	Readiness        map[string]ReadinessCheck
	Logger           logger.Logger
}

type Settings struct {
	Institutions            []string
	ApplicationFee          int
	RequirePaymentReference bool
	MaxUploadBytes          int64
	SessionIdleTTL          time.Duration
	RequestTimeout          time.Duration
}

type Server struct {
	deps      Dependencies
	settings  Settings
	validator *wizard.StepValidator
	registry  *Registry
	logger    logger.Logger
}

func New(deps Dependencies, settings Settings) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if settings.MaxUploadBytes <= 0 {
		settings.MaxUploadBytes = 10 << 20
	}
	if settings.RequestTimeout <= 0 {
		settings.RequestTimeout = 60 * time.Second
	}
	log := deps.Logger.WithFields(map[string]interface{}{"component": "session-service"})
	return &Server{
		deps:      deps,
		settings:  settings,
		validator: wizard.NewStepValidator(wizard.WithPaymentReferenceRequired(settings.RequirePaymentReference)),
		registry:  NewRegistry(settings.SessionIdleTTL, log),
		logger:    log,
	}
}

func (s *Server) Registry() *Registry {
	return s.registry
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.settings.RequestTimeout))

		r.Get("/programs", s.listPrograms)

		r.Post("/wizard/sessions", s.createSession)
		r.Route("/wizard/sessions/{sessionId}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)

			r.Patch("/draft", s.patchDraft)
			r.Post("/education", s.addEducation)
			r.Put("/education/{index}", s.updateEducation)
			r.Delete("/education/{index}", s.removeEducation)

			r.Post("/advance", s.advance)
			r.Post("/retreat", s.retreat)
			r.Post("/jump/{step}", s.jumpBack)
			r.Post("/submit", s.submit)

			r.Post("/documents/{field}", s.uploadDocuments)
			r.Delete("/documents/{field}/{index}", s.removeDocument)
			r.Get("/previews/{previewId}", s.preview)

			r.Post("/payment/push", s.initiatePush)
			r.Post("/payment/verify", s.verifyPush)
			r.Post("/payment/manual", s.manualPayment)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failures := map[string]string{}
	for name, check := range s.deps.Readiness {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"checks": failures,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"sessions": s.registry.Len(),
		"time":     time.Now().Format(time.RFC3339),
	})
}
