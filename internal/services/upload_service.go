package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/AnshRaj112/newsdesk-backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadFile is an uploaded file already spooled to local disk.
type UploadFile struct {
	Name string // client file name, only its extension is kept
	Path string
}

// ImageResult locates a stored image and its thumbnail.
type ImageResult struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
}

// UploadFailure names an input file that could not be stored.
type UploadFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ItemResult is either a Success or a Failure.
type ItemResult struct {
	Success *ImageResult
	Failure *UploadFailure
}

func (r ItemResult) MarshalJSON() ([]byte, error) {
	if r.Failure != nil {
		return json.Marshal(r.Failure)
	}
	return json.Marshal(r.Success)
}

// BatchResult holds one ItemResult per input, in input order.
type BatchResult struct {
	Items     []ItemResult
	Succeeded int
	Failed    int
}

// Status is 200 when every file was stored, 422 when none was and 207
// otherwise.
func (b BatchResult) Status() int {
	switch {
	case b.Failed == 0:
		return http.StatusOK
	case b.Succeeded == 0:
		return http.StatusUnprocessableEntity
	}
	return http.StatusMultiStatus
}

type UploadConfig struct {
	// UploadsDir is the key prefix for stored images, e.g. "images/news/".
	UploadsDir string
	// TempDir holds thumbnails before they are stored; "" means os.TempDir.
	TempDir string
}

// UploadService stores images with a thumbnail and deletes them again.
type UploadService struct {
	images   ImageProcessor
	files    FileStore
	activity ActivityRecorder
	logger   *zap.Logger
	cfg      UploadConfig
	newID    func() string
}

func NewUploadService(images ImageProcessor, files FileStore, activity ActivityRecorder, logger *zap.Logger, cfg UploadConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &UploadService{
		images:   images,
		files:    files,
		activity: activity,
		logger:   logger,
		cfg:      cfg,
		newID:    uuid.NewString,
	}
}

// SaveImage stores f under a fresh name next to a resized thumbnail. Either
// both are stored or neither is.
func (s *UploadService) SaveImage(ctx context.Context, f UploadFile) (ImageResult, error) {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !IsImageExtension(ext) {
		return ImageResult{}, fmt.Errorf("%w: %q", ErrUnsupportedImage, f.Name)
	}

	id := s.newID()
	imageKey := s.cfg.UploadsDir + id + ext
	thumbName := id + "-thumbnail" + ext
	thumbKey := s.cfg.UploadsDir + thumbName
	thumbTmp := filepath.Join(s.cfg.TempDir, thumbName)

	if err := s.images.Thumbnail(ctx, f.Path, thumbTmp); err != nil {
		_ = os.Remove(thumbTmp)
		return ImageResult{}, fmt.Errorf("resize %s: %w", f.Name, err)
	}

	thumbURL, err := s.files.Put(ctx, thumbTmp, thumbKey)
	if err != nil {
		_ = os.Remove(thumbTmp)
		return ImageResult{}, fmt.Errorf("store thumbnail of %s: %w", f.Name, err)
	}

	imageURL, err := s.files.Put(ctx, f.Path, imageKey)
	if err != nil {
		if delErr := s.files.Delete(context.WithoutCancel(ctx), thumbKey); delErr != nil {
			s.logger.Warn("failed to remove orphaned thumbnail",
				zap.String("key", thumbKey),
				zap.Error(delErr),
			)
		}
		return ImageResult{}, fmt.Errorf("store %s: %w", f.Name, err)
	}

	return ImageResult{URL: imageURL, Thumbnail: thumbURL}, nil
}

// SaveImages stores every file concurrently. Each file succeeds or fails on
// its own.
func (s *UploadService) SaveImages(ctx context.Context, files []UploadFile) (BatchResult, error) {
	if len(files) == 0 {
		return BatchResult{}, ErrImagesRequired
	}

	items := make([]ItemResult, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f UploadFile) {
			defer wg.Done()
			res, err := s.SaveImage(ctx, f)
			if err != nil {
				s.logger.Error("failed to save image", zap.String("name", f.Name), zap.Error(err))
				items[i] = ItemResult{Failure: &UploadFailure{Name: f.Name, Error: uploadErrorMessage(err)}}
				return
			}
			items[i] = ItemResult{Success: &res}
		}(i, f)
	}
	wg.Wait()

	out := BatchResult{Items: items}
	for _, it := range items {
		if it.Failure != nil {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}

	var err error
	if out.Succeeded == 0 {
		err = errors.New("no image could be stored")
	}
	recordActivity(ctx, s.activity, s.logger, 0, models.EventUpload, "", err)
	return out, nil
}

func uploadErrorMessage(err error) string {
	if errors.Is(err, ErrUnsupportedImage) {
		return "Unsupported image type"
	}
	return "Couldn't save image"
}

// DeleteFiles removes every path of the comma separated list. Missing files
// count as deleted.
func (s *UploadService) DeleteFiles(ctx context.Context, images string) error {
	var keys []string
	for _, p := range strings.Split(images, ",") {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	if len(keys) == 0 {
		return ErrNoImagesProvided
	}

	var errs []error
	for _, key := range keys {
		if err := s.files.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	recordActivity(ctx, s.activity, s.logger, 0, models.EventDeleteFiles, "", err)
	return err
}
