// ==============================================================================
// FILE UPLOAD SERVICE - internal/fileupload/service.go
// ==============================================================================
// Validates and stores KYC documents, handing back serialisable references
// ==============================================================================

package fileupload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/virusscan"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"

	"github.com/google/uuid"
)

// ==============================================================================
// INTERFACES
// ==============================================================================

// StorageProvider defines the interface for different storage backends
type StorageProvider interface {
	SaveFile(ctx context.Context, key string, data []byte, contentType string) error
	GetFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
	GenerateAccessURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}

// Scanner screens document bytes before they reach storage.
type Scanner interface {
	ScanBuffer(ctx context.Context, data []byte) (*virusscan.ScanResult, error)
}

// ==============================================================================
// REQUEST STRUCTURES
// ==============================================================================

// UploadRequest contains all data needed for file upload
type UploadRequest struct {
	UserID uuid.UUID
	// Field names the form slot, e.g. "identity/frontImage".
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// Config controls what the service accepts.
type Config struct {
	MaxFileSize      int64
	AllowedTypes     []string
	AccessURLExpires time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxFileSize:      10 << 20,
		AllowedTypes:     []string{"image/jpeg", "image/jpg", "image/png", "application/pdf"},
		AccessURLExpires: 15 * time.Minute,
	}
}

// ==============================================================================
// SERVICE
// ==============================================================================

type Service struct {
	storage StorageProvider
	scanner Scanner
	logger  logger.Logger
	config  Config
	now     func() time.Time
}

func NewService(storage StorageProvider, log logger.Logger, cfg Config) *Service {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultConfig().MaxFileSize
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = DefaultConfig().AllowedTypes
	}
	if cfg.AccessURLExpires <= 0 {
		cfg.AccessURLExpires = DefaultConfig().AccessURLExpires
	}
	return &Service{storage: storage, logger: log, config: cfg, now: time.Now}
}

// WithScanner makes Upload reject documents the scanner flags.
func (s *Service) WithScanner(scanner Scanner) *Service {
	s.scanner = scanner
	return s
}

// Validate checks size and content type without storing anything.
func (s *Service) Validate(req *UploadRequest) (string, error) {
	size := int64(len(req.Data))
	if size == 0 {
		return "", fmt.Errorf("%w: empty file", errs.ErrFileUploadFailed)
	}
	if size > s.config.MaxFileSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", errs.ErrFileTooLarge, size, s.config.MaxFileSize)
	}

	contentType := detectContentType(req)
	for _, allowed := range s.config.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return contentType, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errs.ErrFileTypeNotAllowed, contentType)
}

// Upload validates and stores a document.
func (s *Service) Upload(ctx context.Context, req *UploadRequest) (*domain.DocumentRef, error) {
	startTime := time.Now()

	contentType, err := s.Validate(req)
	if err != nil {
		return nil, err
	}

	if s.scanner != nil {
		result, err := s.scanner.ScanBuffer(ctx, req.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", errs.ErrFileUploadFailed, err)
		}
		if !result.Clean {
			s.logger.Warn("File upload rejected", map[string]interface{}{
				"event":   "file_upload_rejected",
				"user_id": req.UserID.String(),
				"field":   req.Field,
				"threats": result.Threats,
			})
			return nil, fmt.Errorf("%w: %s", errs.ErrFileInfected, strings.Join(result.Threats, ", "))
		}
	}

	name := sanitizeFileName(req.FileName)
	key := path.Join(
		"users", req.UserID.String(),
		strings.Trim(req.Field, "/"),
		fmt.Sprintf("%s%s", uuid.New().String(), strings.ToLower(filepath.Ext(name))),
	)

	if err := s.storage.SaveFile(ctx, key, req.Data, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrFileStorageFailed, err)
	}

	ref := &domain.DocumentRef{
		Key:         key,
		Name:        name,
		Size:        int64(len(req.Data)),
		ContentType: contentType,
		Checksum:    checksum(req.Data),
		UploadedAt:  s.now().UTC(),
	}

	s.logger.Info("File upload completed", map[string]interface{}{
		"event":        "file_upload_completed",
		"user_id":      req.UserID.String(),
		"field":        req.Field,
		"file_name":    name,
		"file_size":    ref.Size,
		"content_type": contentType,
		"storage_key":  key,
		"duration_ms":  time.Since(startTime).Milliseconds(),
	})

	return ref, nil
}

// Delete removes a stored document. Missing objects are not an error.
func (s *Service) Delete(ctx context.Context, ref *domain.DocumentRef) error {
	if ref == nil || ref.Key == "" {
		return nil
	}
	if err := s.storage.DeleteFile(ctx, ref.Key); err != nil {
		return fmt.Errorf("failed to delete file from storage: %w", err)
	}
	s.logger.Info("File deleted", map[string]interface{}{
		"event":       "file_deleted",
		"storage_key": ref.Key,
	})
	return nil
}

// AccessURL returns a time-limited URL for a stored document.
func (s *Service) AccessURL(ctx context.Context, ref *domain.DocumentRef) (string, error) {
	return s.storage.GenerateAccessURL(ctx, ref.Key, s.config.AccessURLExpires)
}

// ==============================================================================
// HELPER FUNCTIONS
// ==============================================================================

func detectContentType(req *UploadRequest) string {
	ct := req.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(req.FileName)))
	}
	if ct == "" {
		head := req.Data
		if len(head) > 512 {
			head = head[:512]
		}
		ct = http.DetectContentType(head)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	return strings.ToLower(ct)
}

var unsafeChars = strings.NewReplacer(
	"..", "",
	"/", "_",
	"\\", "_",
	" ", "_",
	"\"", "",
	"'", "",
	"`", "",
	"|", "_",
	"&", "_",
	";", "_",
	"$", "_",
	"(", "_",
	")", "_",
	"<", "_",
	">", "_",
	"*", "_",
	"?", "_",
	"%", "_",
)

// sanitizeFileName removes dangerous characters from file names
func sanitizeFileName(fileName string) string {
	fileName = filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	fileName = unsafeChars.Replace(fileName)
	if fileName == "" || fileName == "." {
		fileName = "document"
	}

	if len(fileName) > 255 {
		ext := filepath.Ext(fileName)
		fileName = fileName[:255-len(ext)] + ext
	}
	return fileName
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
