package service

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
	"github.com/noah-isme/hr-workflow-api/pkg/storage"
)

type previewFileStorage interface {
	SaveStream(relPath string, r io.Reader, limit int64) (int64, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	DeleteDir(relDir string) error
}

type previewSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.Grant, error)
}

// FileUpload is a file offered to an edit session.
type FileUpload struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
	Content     io.ReadSeeker
}

// PreviewStore stages pending files on disk and issues revocable preview links.
// Releasing a preview deletes the staged file, so its link stops resolving.
type PreviewStore struct {
	files      previewFileStorage
	signer     previewSigner
	linkPrefix string
	logger     *zap.Logger
}

// NewPreviewStore constructs the store. linkPrefix is the API prefix preview links are built under.
func NewPreviewStore(files previewFileStorage, signer previewSigner, linkPrefix string, logger *zap.Logger) *PreviewStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreviewStore{files: files, signer: signer, linkPrefix: strings.TrimRight(linkPrefix, "/"), logger: logger}
}

// Stage writes the upload below the session directory and signs a preview link for it.
func (p *PreviewStore) Stage(sessionID string, upload FileUpload, contentType string, limit int64) (models.PendingFile, error) {
	rel := path.Join(sessionID, upload.Field, uuid.NewString()+strings.ToLower(filepath.Ext(upload.Filename)))
	size, err := p.files.SaveStream(rel, upload.Content, limit)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return models.PendingFile{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", limit))
		}
		return models.PendingFile{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage file")
	}
	token, expiresAt, err := p.signer.Generate(previewSubject(sessionID, upload.Field), rel)
	if err != nil {
		_ = p.files.Delete(rel)
		return models.PendingFile{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign preview")
	}
	return models.PendingFile{
		Field:        upload.Field,
		Filename:     filepath.Base(upload.Filename),
		ContentType:  contentType,
		Size:         size,
		PreviewURL:   fmt.Sprintf("%s/sessions/%s/previews/%s?token=%s", p.linkPrefix, url.PathEscape(sessionID), url.PathEscape(upload.Field), url.QueryEscape(token)),
		ExpiresAt:    expiresAt,
		AttachedAt:   time.Now().UTC(),
		StoragePath:  rel,
		PreviewToken: token,
	}, nil
}

// Open returns the staged bytes of a pending file.
func (p *PreviewStore) Open(file models.PendingFile) (io.ReadCloser, error) {
	return p.files.Open(file.StoragePath)
}

// Verify checks a preview token was issued for the session field.
func (p *PreviewStore) Verify(sessionID, field, token string) error {
	grant, err := p.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return appErrors.Clone(appErrors.ErrForbidden, "preview link expired")
		}
		return appErrors.Clone(appErrors.ErrForbidden, "invalid preview link")
	}
	if grant.Subject != previewSubject(sessionID, field) {
		return appErrors.Clone(appErrors.ErrForbidden, "invalid preview link")
	}
	return nil
}

// Release deletes one staged file.
func (p *PreviewStore) Release(file models.PendingFile) {
	if file.StoragePath == "" {
		return
	}
	if err := p.files.Delete(file.StoragePath); err != nil {
		p.logger.Warn("failed to release preview", zap.String("path", file.StoragePath), zap.Error(err))
	}
}

// ReleaseSession deletes every staged file of a session.
func (p *PreviewStore) ReleaseSession(sessionID string) {
	if err := p.files.DeleteDir(sessionID); err != nil {
		p.logger.Warn("failed to release session previews", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func previewSubject(sessionID, field string) string {
	return sessionID + ":" + field
}
