package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryFileStore keeps uploads in Cloudinary. Keys map to public ids
// without their extension, e.g. "images/news/<id>.jpg" -> "images/news/<id>".
type CloudinaryFileStore struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryFileStore(cloudName, apiKey, apiSecret string) (*CloudinaryFileStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize Cloudinary: %v", ErrFileStoreInvalidConfig, err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryFileStore{cld: cld}, nil
}

func (s *CloudinaryFileStore) Put(ctx context.Context, src, key string) (string, error) {
	publicID, err := cloudinaryPublicID(key)
	if err != nil {
		return "", err
	}

	res, err := s.cld.Upload.Upload(ctx, src, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("failed to upload to Cloudinary: %s", res.Error.Message)
	}

	// the local copy is gone once the upload is stored
	if err := os.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("remove uploaded temp file: %w", err)
	}
	return res.SecureURL, nil
}

func (s *CloudinaryFileStore) Delete(ctx context.Context, key string) error {
	publicID, err := cloudinaryPublicID(key)
	if err != nil {
		return err
	}
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to delete from Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("failed to delete from Cloudinary: %s", res.Error.Message)
	}
	// "not found" is fine
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("failed to delete from Cloudinary: %s", res.Result)
	}
	return nil
}

// URL returns the delivery url of key.
func (s *CloudinaryFileStore) URL(key string) (string, error) {
	publicID, err := cloudinaryPublicID(key)
	if err != nil {
		return "", err
	}
	img, err := s.cld.Image(publicID)
	if err != nil {
		return "", err
	}
	return img.String()
}

var cloudinaryVersion = regexp.MustCompile(`^v\d+$`)

// cloudinaryPublicID accepts a key or a delivery url such as
// https://res.cloudinary.com/demo/image/upload/v123/images/news/a.jpg.
func cloudinaryPublicID(key string) (string, error) {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		u, err := url.Parse(key)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
		}
		_, after, ok := strings.Cut(u.Path, "/upload/")
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
		}
		parts := strings.Split(after, "/")
		if len(parts) > 1 && cloudinaryVersion.MatchString(parts[0]) {
			parts = parts[1:]
		}
		key = strings.Join(parts, "/")
	}

	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidPath)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
		}
	}
	return strings.TrimSuffix(key, path.Ext(key)), nil
}

var _ FileStore = (*CloudinaryFileStore)(nil)
