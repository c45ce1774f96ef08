package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/dmarceau/shopstream-backend/pkg/config"
)

// Image is the stored location of an uploaded asset.
type Image struct {
	URL      string
	PublicID string
}

// Uploader stores and removes product images.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader) (Image, error)
	Destroy(ctx context.Context, publicID string) error
}

// CloudinaryUploader implements Uploader against the Cloudinary API.
type CloudinaryUploader struct {
	client *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader constructs an uploader from the CLOUDINARY_URL style DSN.
func NewCloudinaryUploader(cfg config.CloudinaryConfig) (*CloudinaryUploader, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("cloudinary url is required")
	}
	client, err := cloudinary.NewFromURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &CloudinaryUploader{
		client: client,
		folder: cfg.Folder,
	}, nil
}

// Upload stores the image and returns its hosted URL and public ID.
func (u *CloudinaryUploader) Upload(ctx context.Context, r io.Reader) (Image, error) {
	if r == nil {
		return Image{}, errors.New("image reader is required")
	}
	result, err := u.client.Upload.Upload(ctx, r, uploader.UploadParams{Folder: u.folder})
	if err != nil {
		return Image{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	return Image{
		URL:      result.SecureURL,
		PublicID: result.PublicID,
	}, nil
}

// Destroy removes a previously uploaded image. Unknown public IDs are not an error.
func (u *CloudinaryUploader) Destroy(ctx context.Context, publicID string) error {
	if strings.TrimSpace(publicID) == "" {
		return nil
	}
	if _, err := u.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	return nil
}
