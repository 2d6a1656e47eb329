package wizard

import (
	"context"
	"fmt"
	"path"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/metrics"
	"admissions-wizard/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// UploadDocuments sends files for one document field to the upload API and
// merges the returned paths into the draft. Single fields keep only the last
// file. On failure the draft is unchanged and the field gets an upload error.
func (c *Controller) UploadDocuments(ctx context.Context, field models.DocumentField, files []models.UploadFile) error {
	c.mu.Lock()
	if err := c.checkMutableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if !field.Valid() {
		c.mu.Unlock()
		return errors.NewInvalidDocumentFieldError(string(field))
	}
	if len(files) == 0 {
		c.mu.Unlock()
		return errors.NewUploadFailedError(string(field), fmt.Errorf("no files selected"))
	}
	if !field.Multi() {
		files = files[len(files)-1:]
	}
	payload := make([]models.UploadFile, len(files))
	for i, f := range files {
		f.Field = string(field)
		if f.ContentType == "" {
			f.ContentType = mimetype.Detect(f.Content).String()
		}
		payload[i] = f
	}
	c.mu.Unlock()

	stored, err := c.deps.Uploader.Upload(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.step.Terminal() {
		c.log.Debug("Discarding upload result for closed wizard", map[string]interface{}{"field": string(field)})
		return errors.NewWizardClosedError()
	}

	var paths []string
	if err == nil {
		paths = stored[string(field)]
		if len(paths) == 0 {
			err = fmt.Errorf("upload response did not include %s", field)
		}
	}
	if err != nil {
		c.uploadErrors[field] = "upload failed, please select the file again"
		metrics.WizardUploads.WithLabelValues(string(field), "failed").Inc()
		c.log.Warn("Document upload failed", map[string]interface{}{
			"field": string(field),
			"files": len(payload),
			"error": err,
		})
		return errors.NewUploadFailedError(string(field), err)
	}

	if !field.Multi() {
		paths = paths[len(paths)-1:]
	}

	next := c.draft.Clone()
	next.MergeDocumentPaths(field, paths)
	c.draft = next

	added := make([]Preview, 0, len(paths))
	for i, p := range paths {
		added = append(added, c.newPreviewLocked(p, payload, i))
	}
	if field.Multi() {
		c.previews[field] = append(c.previews[field], added...)
	} else {
		c.dropPreviewsLocked(field)
		c.previews[field] = added
	}

	delete(c.uploadErrors, field)
	delete(c.errors, string(field))
	metrics.WizardUploads.WithLabelValues(string(field), "success").Inc()
	c.persistLocked(ctx, "upload")
	return nil
}

// RemoveDocument removes the file at index from field. Preview and path go
// together so both lists stay aligned.
func (c *Controller) RemoveDocument(ctx context.Context, field models.DocumentField, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkMutableLocked(); err != nil {
		return err
	}
	if !field.Valid() {
		return errors.NewInvalidDocumentFieldError(string(field))
	}

	next := c.draft.Clone()
	if !next.RemoveDocumentPath(field, index) {
		return errors.NewDocumentNotFoundError(string(field), index)
	}
	c.draft = next

	list := c.previews[field]
	if index < len(list) {
		delete(c.previewData, list[index].ID)
		rest := make([]Preview, 0, len(list)-1)
		rest = append(rest, list[:index]...)
		c.previews[field] = append(rest, list[index+1:]...)
	}
	if len(c.previews[field]) == 0 {
		delete(c.previews, field)
	}

	delete(c.uploadErrors, field)
	delete(c.errors, string(field))
	c.persistLocked(ctx, "remove_document")
	return nil
}

// newPreviewLocked describes the i-th stored path. The local file is used
// when the response lines up with what was sent.
func (c *Controller) newPreviewLocked(storedPath string, sent []models.UploadFile, i int) Preview {
	p := Preview{ID: uuid.NewString(), Name: path.Base(storedPath)}
	if i >= len(sent) {
		return p
	}
	f := sent[i]
	if f.Name != "" {
		p.Name = f.Name
	}
	p.MIMEType = f.ContentType
	p.Size = len(f.Content)
	if len(f.Content) > 0 {
		c.previewData[p.ID] = f.Content
		p.URL = c.opts.PreviewURLPrefix + p.ID
	}
	return p
}

func (c *Controller) dropPreviewsLocked(field models.DocumentField) {
	for _, p := range c.previews[field] {
		delete(c.previewData, p.ID)
	}
	delete(c.previews, field)
}
