package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/diagnosis/accounts-api/internal/apperr"
	"github.com/diagnosis/accounts-api/internal/domain"
	"github.com/diagnosis/accounts-api/internal/repo/postgres"
	"github.com/diagnosis/accounts-api/internal/storage"
	"github.com/diagnosis/accounts-api/pkg/logger"
)

// Upload is a file received by the server for forwarding to the bucket.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type FileService interface {
	Presign(ctx context.Context, userID string, req *domain.PresignRequest) (*domain.PresignResponse, error)
	SaveMetadata(ctx context.Context, userID string, req *domain.SaveFileRequest) (*domain.File, error)
	Upload(ctx context.Context, userID string, up Upload) (*domain.File, error)
	List(ctx context.Context, userID string) ([]domain.File, error)
}

type fileService struct {
	files      postgres.FileRepository
	store      storage.Storage
	validate   Validator
	presignTTL time.Duration
}

// NewFileService wires the file flows. store may be nil when no bucket is
// configured; metadata can still be saved and listed then.
func NewFileService(files postgres.FileRepository, store storage.Storage, validate Validator, presignTTL time.Duration) FileService {
	if presignTTL <= 0 {
		presignTTL = 5 * time.Minute
	}
	return &fileService{
		files:      files,
		store:      store,
		validate:   validate,
		presignTTL: presignTTL,
	}
}

func (s *fileService) Presign(ctx context.Context, userID string, req *domain.PresignRequest) (*domain.PresignResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, apperr.Internal(storage.ErrNotConfigured, "File storage is not available")
	}

	key := storage.ObjectKey(req.FileName)
	url, err := s.store.PresignPut(ctx, key, req.ContentType, s.presignTTL)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to create upload URL")
	}

	resp := &domain.PresignResponse{
		PresignedURL: url,
		ObjectKey:    key,
		ExpiresIn:    int64(s.presignTTL.Seconds()),
	}
	if public := s.store.PublicURL(key); public != "" {
		resp.PublicFileURL = &public
	}

	logger.DebugContext(ctx, "presigned upload", "user_id", userID, "object_key", key)
	return resp, nil
}

func (s *fileService) SaveMetadata(ctx context.Context, userID string, req *domain.SaveFileRequest) (*domain.File, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	return s.record(ctx, userID, req.ObjectKey, req.PublicFileURL)
}

func (s *fileService) Upload(ctx context.Context, userID string, up Upload) (*domain.File, error) {
	if up.Body == nil || up.FileName == "" {
		return nil, apperr.Validation("Invalid request body", map[string]string{"file": "is required"})
	}
	if s.store == nil {
		return nil, apperr.Internal(storage.ErrNotConfigured, "File storage is not available")
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.ObjectKey(up.FileName)
	if err := s.store.Put(ctx, key, up.Body, up.Size, contentType); err != nil {
		return nil, apperr.Internal(err, "Failed to upload file")
	}

	logger.InfoContext(ctx, "file uploaded", "user_id", userID, "object_key", key, "size", up.Size)
	return s.record(ctx, userID, key, "")
}

func (s *fileService) List(ctx context.Context, userID string) ([]domain.File, error) {
	files, err := s.files.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list files: %w", err), "Failed to list files")
	}
	return files, nil
}

func (s *fileService) record(ctx context.Context, userID, key, publicURL string) (*domain.File, error) {
	fileURL := publicURL
	if fileURL == "" && s.store != nil {
		fileURL = s.store.PublicURL(key)
	}
	if fileURL == "" {
		fileURL = domain.FileURLUnavailable
	}

	f, err := s.files.Create(ctx, &domain.File{
		ObjectKey: key,
		FileURL:   fileURL,
		UserID:    userID,
	})
	if err != nil {
		var dup *postgres.DuplicateError
		if errors.As(err, &dup) {
			return nil, apperr.Conflict("File already exists")
		}
		return nil, apperr.Internal(fmt.Errorf("save file metadata: %w", err), "Failed to save file metadata")
	}
	return f, nil
}
