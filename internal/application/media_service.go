package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/pkg/helpers"
)

var ErrStorageNotConfigured = errors.New("object storage not configured")

// Folders media can be uploaded into. Anything else is rejected so admins
// cannot write arbitrary bucket paths.
var mediaFolders = map[string]bool{
	"banners": true,
	"lessons": true,
	"files":   true,
}

// MediaService uploads course assets (banners, lesson attachments) to GCS.
type MediaService struct {
	GCS       *storage.Client
	GCSBucket string
	Logger    *logrus.Logger
}

func NewMediaService(gcs *storage.Client, bucket string, logger *logrus.Logger) *MediaService {
	return &MediaService{GCS: gcs, GCSBucket: bucket, Logger: logger}
}

func (s *MediaService) ValidFolder(folder string) bool {
	return mediaFolders[folder]
}

// Upload stores the object under folder/<uuid><ext> and returns its public URL.
func (s *MediaService) Upload(ctx context.Context, folder, filename, contentType string, r io.Reader) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", ErrStorageNotConfigured
	}
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join(folder, id+ext))
	return helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
}
