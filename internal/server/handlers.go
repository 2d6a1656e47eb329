package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/models"
	"admissions-wizard/internal/wizard"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createSessionRequest struct {
	Institution string                   `json:"institution"`
	SessionID   string                   `json:"sessionId,omitempty"`
	Applicant   *models.ApplicantProfile `json:"applicant,omitempty"`
}

type sessionResponse struct {
	SessionID string          `json:"sessionId"`
	Snapshot  wizard.Snapshot `json:"snapshot"`
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return badRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func (s *Server) institutionAllowed(institution string) bool {
	for _, allowed := range s.settings.Institutions {
		if allowed == institution {
			return true
		}
	}
	return false
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !s.institutionAllowed(req.Institution) {
		writeError(w, badRequest(fmt.Sprintf("unknown institution %q", req.Institution)))
		return
	}

	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		writeError(w, badRequest("sessionId must be a UUID"))
		return
	}

	institution := models.Institution(req.Institution)
	controller, err := wizard.Mount(r.Context(), wizard.Dependencies{
		Drafts:           s.deps.Drafts.ForSession(id),
		Uploader:         s.deps.Uploader,
		Payments:         s.deps.Payments,
		Submitter:        s.deps.Submitter,
		Validator:        s.validator,
		PayloadValidator: s.deps.PayloadValidator,
		Listeners:        s.deps.Listeners,
		Logger:           s.logger.WithFields(map[string]interface{}{"sessionId": id}),
	}, wizard.Options{
		Institution:      institution,
		Applicant:        req.Applicant,
		ApplicationFee:   s.settings.ApplicationFee,
		PreviewURLPrefix: "/api/v1/wizard/sessions/" + id + "/previews/",
		DraftBackend:     s.deps.Drafts.Backend().Name(),
	})
	if err != nil {
		s.logger.Error("Failed to mount wizard", map[string]interface{}{"sessionId": id, "error": err})
		writeError(w, err)
		return
	}

	s.registry.Put(id, institution, controller)
	s.logger.Info("Wizard session mounted", map[string]interface{}{
		"sessionId":   id,
		"institution": req.Institution,
	})
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id, Snapshot: controller.Snapshot()})
}

// controller resolves the session in the URL or writes a 404.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) (*wizard.Controller, string, bool) {
	id := chi.URLParam(r, "sessionId")
	c, ok := s.registry.Get(id)
	if !ok {
		writeError(w, errors.NewSessionNotFoundError(id))
		return nil, id, false
	}
	return c, id, true
}

func (s *Server) writeSnapshot(w http.ResponseWriter, id string, c *wizard.Controller) {
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Snapshot: c.Snapshot()})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	c, id, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.writeSnapshot(w, id, c)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	if !s.registry.Remove(id) {
		writeError(w, errors.NewSessionNotFoundError(id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// run applies op to the session and answers with the new snapshot.
func (s *Server) run(w http.ResponseWriter, r *http.Request, op func(c *wizard.Controller) error) {
	c, id, ok := s.controller(w, r)
	if !ok {
		return
	}
	if err := op(c); err != nil {
		writeError(w, err)
		return
	}
	s.writeSnapshot(w, id, c)
}

func (s *Server) patchDraft(w http.ResponseWriter, r *http.Request) {
	var patch map[string]interface{}
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	if len(patch) == 0 {
		writeError(w, badRequest("patch is empty"))
		return
	}
	s.run(w, r, func(c *wizard.Controller) error {
		return c.Dispatch(r.Context(), wizard.SetFields(patch))
	})
}

func (s *Server) addEducation(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(c *wizard.Controller) error {
		return c.Dispatch(r.Context(), wizard.AddEducation{})
	})
}

func indexParam(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, badRequest("index must be a number")
	}
	return index, nil
}

func (s *Server) updateEducation(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var entry models.EducationEntry
	if err := decodeJSON(r, &entry); err != nil {
		writeError(w, err)
		return
	}
	s.run(w, r, func(c *wizard.Controller) error {
		return c.Dispatch(r.Context(), wizard.UpdateEducation{Index: index, Entry: entry})
	})
}

func (s *Server) removeEducation(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.run(w, r, func(c *wizard.Controller) error {
		return c.Dispatch(r.Context(), wizard.RemoveEducation{Index: index})
	})
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(c *wizard.Controller) error { return c.Advance(r.Context()) })
}

func (s *Server) retreat(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(c *wizard.Controller) error { return c.Retreat(r.Context()) })
}

func (s *Server) jumpBack(w http.ResponseWriter, r *http.Request) {
	target, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, badRequest("step must be a number"))
		return
	}
	s.run(w, r, func(c *wizard.Controller) error { return c.JumpBack(r.Context(), wizard.Step(target)) })
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(c *wizard.Controller) error { return c.Submit(r.Context()) })
}

func (s *Server) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	field := models.DocumentField(chi.URLParam(r, "field"))
	if !field.Valid() {
		writeError(w, errors.NewInvalidDocumentFieldError(string(field)))
		return
	}

	tooLarge := &errors.StandardError{Code: errCodeTooLarge, Message: fmt.Sprintf("upload exceeds %d bytes", s.settings.MaxUploadBytes)}
	if r.ContentLength > s.settings.MaxUploadBytes {
		writeError(w, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.settings.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.settings.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			writeError(w, tooLarge)
			return
		}
		writeError(w, badRequest(fmt.Sprintf("invalid upload: %v", err)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File[string(field)]
	}
	if len(headers) == 0 {
		writeError(w, badRequest("no files in upload"))
		return
	}

	files := make([]models.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, badRequest(fmt.Sprintf("read %s: %v", fh.Filename, err)))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, badRequest(fmt.Sprintf("read %s: %v", fh.Filename, err)))
			return
		}
		files = append(files, models.UploadFile{
			Field:       string(field),
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	s.run(w, r, func(c *wizard.Controller) error {
		return c.UploadDocuments(r.Context(), field, files)
	})
}

func (s *Server) removeDocument(w http.ResponseWriter, r *http.Request) {
	field := models.DocumentField(chi.URLParam(r, "field"))
	if !field.Valid() {
		writeError(w, errors.NewInvalidDocumentFieldError(string(field)))
		return
	}
	index, err := indexParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.run(w, r, func(c *wizard.Controller) error {
		return c.RemoveDocument(r.Context(), field, index)
	})
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	c, _, ok := s.controller(w, r)
	if !ok {
		return
	}
	p, data, found := c.PreviewContent(chi.URLParam(r, "previewId"))
	if !found {
		writeError(w, &errors.StandardError{Code: errors.ErrCodeDocumentNotFound, Message: "Preview not found"})
		return
	}
	contentType := p.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename=%q`, p.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

type pushRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Receipt string `json:"receipt"`
}

type manualPaymentRequest struct {
	Method    models.PaymentMethod `json:"method"`
	Reference string               `json:"reference"`
}

func (s *Server) initiatePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.run(w, r, func(c *wizard.Controller) error {
		_, err := c.InitiatePushPayment(r.Context(), req.Phone)
		return err
	})
}

func (s *Server) verifyPush(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Receipt) == "" {
		writeError(w, badRequest("receipt is required"))
		return
	}
	s.run(w, r, func(c *wizard.Controller) error {
		return c.VerifyPushPayment(r.Context(), req.Receipt)
	})
}

func (s *Server) manualPayment(w http.ResponseWriter, r *http.Request) {
	var req manualPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.run(w, r, func(c *wizard.Controller) error {
		return c.SetManualPayment(r.Context(), req.Method, req.Reference)
	})
}

func (s *Server) listPrograms(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"programs": []models.Program{}})
		return
	}
	q := r.URL.Query()
	programs, err := s.deps.Catalog.Programs(r.Context(), q.Get("institution"), strings.TrimSpace(q.Get("q")))
	if err != nil {
		s.logger.Warn("Programme listing failed", map[string]interface{}{"error": err})
		writeError(w, err)
		return
	}
	if programs == nil {
		programs = []models.Program{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"programs": programs})
}
