package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/xid"
)

// Uploader stores avatar images and returns URLs the app can serve.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, folder string) (string, error)
}

// CloudinaryStorage uploads avatars to a Cloudinary account.
type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStorage(cloudName, apiKey, apiSecret string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("initializing cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld}, nil
}

var _ Uploader = (*CloudinaryStorage)(nil)

// Upload stores the image under a fresh object name so re-uploads never
// collide with a previous avatar.
func (s *CloudinaryStorage) Upload(ctx context.Context, r io.Reader, folder string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading avatar: %w", err)
	}

	result, err := s.cld.Upload.Upload(ctx, data, uploader.UploadParams{
		PublicID:     xid.New().String(),
		Folder:       folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("uploading avatar: %w", err)
	}
	return result.SecureURL, nil
}

// Disabled rejects every upload. Used when no storage credentials are
// configured so the rest of the app still runs.
type Disabled struct{}

var _ Uploader = Disabled{}

func (Disabled) Upload(context.Context, io.Reader, string) (string, error) {
	return "", errors.New("storage: avatar uploads are not configured")
}
