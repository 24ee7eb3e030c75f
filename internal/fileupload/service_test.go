package fileupload

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/virusscan"
	"taskhub/pkg/config"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000000000")

func newTestService() (*Service, *MemoryProvider) {
	store := NewMemoryProvider()
	return NewService(store, logger.NewNop(), DefaultConfig()), store
}

func TestUpload_StoresAndReturnsRef(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	ref, err := svc.Upload(ctx, &UploadRequest{
		UserID:      userID,
		Field:       "identity/frontImage",
		FileName:    "../../my id (front).png",
		ContentType: "image/png",
		Data:        pngHeader,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref.Key, "users/"+userID.String()+"/identity/frontImage/"))
	assert.True(t, strings.HasSuffix(ref.Key, ".png"))
	assert.Equal(t, "my_id__front_.png", ref.Name)
	assert.Equal(t, int64(len(pngHeader)), ref.Size)
	assert.Equal(t, "image/png", ref.ContentType)
	assert.Len(t, ref.Checksum, 64)
	assert.False(t, ref.UploadedAt.IsZero())

	data, err := store.GetFile(ctx, ref.Key)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	url, err := svc.AccessURL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "memory://"+ref.Key, url)

	require.NoError(t, svc.Delete(ctx, ref))
	assert.Equal(t, 0, store.Len())
}

func TestUpload_Validation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	tests := []struct {
		name    string
		req     UploadRequest
		wantErr error
	}{
		{
			name:    "too large",
			req:     UploadRequest{FileName: "a.pdf", ContentType: "application/pdf", Data: bytes.Repeat([]byte("x"), 10<<20+1)},
			wantErr: errs.ErrFileTooLarge,
		},
		{
			name:    "wrong type",
			req:     UploadRequest{FileName: "a.gif", ContentType: "image/gif", Data: []byte("GIF89a")},
			wantErr: errs.ErrFileTypeNotAllowed,
		},
		{
			name:    "empty",
			req:     UploadRequest{FileName: "a.pdf", ContentType: "application/pdf"},
			wantErr: errs.ErrFileUploadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.UserID = uuid.New()
			_, err := svc.Upload(ctx, &req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, store.Len())
}

func TestUpload_RejectsFlaggedDocuments(t *testing.T) {
	svc, store := newTestService()
	svc.WithScanner(virusscan.NewSignatureScanner(logger.NewNop()))
	ctx := context.Background()

	_, err := svc.Upload(ctx, &UploadRequest{
		UserID:      uuid.New(),
		Field:       "vehicle/insuranceDoc",
		FileName:    "insurance.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 /OpenAction << /S /Launch >>"),
	})
	assert.ErrorIs(t, err, errs.ErrFileInfected)
	assert.Equal(t, 0, store.Len())

	ref, err := svc.Upload(ctx, &UploadRequest{
		UserID:      uuid.New(),
		Field:       "vehicle/insuranceDoc",
		FileName:    "insurance.png",
		ContentType: "image/png",
		Data:        pngHeader,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ref.Key)
}

func TestDetectContentType_FallsBackToExtension(t *testing.T) {
	ct := detectContentType(&UploadRequest{FileName: "scan.JPG", ContentType: "application/octet-stream"})
	assert.Equal(t, "image/jpeg", ct)

	ct = detectContentType(&UploadRequest{FileName: "noext", Data: []byte("%PDF-1.7 ...")})
	assert.Equal(t, "application/pdf", ct)
}

func TestNewMinioProvider(t *testing.T) {
	p, err := NewMinioProvider(config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "kyc-documents",
	})
	require.NoError(t, err)
	assert.Equal(t, "kyc-documents", p.bucket)
}
