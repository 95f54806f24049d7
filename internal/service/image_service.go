package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/models"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/imaging"
	"github.com/noah-isme/office-inventory-api/pkg/jobs"
	"github.com/noah-isme/office-inventory-api/pkg/storage"
)

// ThumbnailJobType is the queue job type that renders thumbnails.
const ThumbnailJobType = "image.thumbnail"

// Image variants addressable through signed URLs.
const (
	VariantOriginal = "original"
	VariantThumb    = "thumb"
)

type imageRepository interface {
	FindByID(ctx context.Context, id string) (*models.Image, error)
	FindByMD5(ctx context.Context, hash string) (*models.Image, error)
	Create(ctx context.Context, img *models.Image) error
	Delete(ctx context.Context, id string) error
}

type imageReferenceCounter interface {
	CountByImage(ctx context.Context, imageID string, excludeID int64) (int, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ImageConfig tunes upload limits and thumbnail rendering.
type ImageConfig struct {
	MaxUploadBytes    int64
	ThumbnailSize     int
	ThumbnailsEnabled bool
	// PublicPath is the route prefix signed URLs point at, e.g. /api/v1/images.
	PublicPath string
}

// ImageObject is an opened image ready to be streamed.
type ImageObject struct {
	Image       *models.Image
	ContentType string
	Body        io.ReadCloser
}

// ImageService stores uploaded equipment pictures.
type ImageService struct {
	repo    imageRepository
	refs    imageReferenceCounter
	store   storage.ObjectStore
	signer  *storage.SignedURLSigner
	queue   jobEnqueuer
	metrics *MetricsService
	config  ImageConfig
	logger  *zap.Logger
}

// NewImageService constructs an ImageService. queue may be nil when thumbnails are disabled.
func NewImageService(repo imageRepository, refs imageReferenceCounter, store storage.ObjectStore, signer *storage.SignedURLSigner, queue jobEnqueuer, metrics *MetricsService, config ImageConfig, logger *zap.Logger) *ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 5 << 20
	}
	if config.ThumbnailSize <= 0 {
		config.ThumbnailSize = 300
	}
	config.PublicPath = strings.TrimRight(config.PublicPath, "/")
	return &ImageService{repo: repo, refs: refs, store: store, signer: signer, queue: queue, metrics: metrics, config: config, logger: logger}
}

// Save validates and stores an upload. An upload whose content hash matches
// an existing image returns that image and stores nothing.
func (s *ImageService) Save(ctx context.Context, upload models.ImageUpload) (*models.Image, error) {
	if len(upload.Content) == 0 {
		s.metrics.RecordImageUpload(ImageResultRejected)
		return nil, invalid("image file is empty")
	}
	if int64(len(upload.Content)) > s.config.MaxUploadBytes {
		s.metrics.RecordImageUpload(ImageResultRejected)
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("image exceeds %d bytes", s.config.MaxUploadBytes))
	}
	info, err := imaging.Inspect(upload.Content)
	if err != nil {
		s.metrics.RecordImageUpload(ImageResultRejected)
		switch {
		case errors.Is(err, imaging.ErrUnsupportedType):
			return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, err.Error())
		case errors.Is(err, imaging.ErrTooLarge):
			return nil, invalid(err.Error())
		}
		return nil, invalid("image could not be decoded")
	}

	sum := md5.Sum(upload.Content)
	hash := hex.EncodeToString(sum[:])
	if existing, err := s.repo.FindByMD5(ctx, hash); err == nil {
		s.metrics.RecordImageUpload(ImageResultDeduplicated)
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internal(err, "failed to look up image")
	}

	img := &models.Image{
		ID:        uuid.NewString(),
		FileName:  sanitizeFileName(upload.FileName, info.Extension),
		MimeType:  info.ContentType,
		MD5Hash:   hash,
		Size:      int64(len(upload.Content)),
		Width:     info.Width,
		Height:    info.Height,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Put(ctx, img.StorageKey(), bytes.NewReader(upload.Content), img.MimeType); err != nil {
		return nil, internal(err, "failed to store image")
	}
	if err := s.repo.Create(ctx, img); err != nil {
		s.removeObjects(ctx, img)
		// A concurrent upload of the same content may have won the unique hash.
		if existing, findErr := s.repo.FindByMD5(ctx, hash); findErr == nil {
			s.metrics.RecordImageUpload(ImageResultDeduplicated)
			return existing, nil
		}
		return nil, internal(err, "failed to save image metadata")
	}
	s.metrics.RecordImageUpload(ImageResultStored)
	s.scheduleThumbnail(img)
	return img, nil
}

func (s *ImageService) scheduleThumbnail(img *models.Image) {
	if !s.config.ThumbnailsEnabled || s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: img.ID, Type: ThumbnailJobType, Payload: img.ID}); err != nil {
		s.logger.Warn("failed to enqueue thumbnail", zap.String("image_id", img.ID), zap.Error(err))
	}
}

// HandleThumbnailJob renders and stores the thumbnail of the image in job.Payload.
func (s *ImageService) HandleThumbnailJob(ctx context.Context, job jobs.Job) (err error) {
	defer func() { s.metrics.RecordThumbnail(err == nil) }()

	id, ok := job.Payload.(string)
	if !ok || id == "" {
		return fmt.Errorf("thumbnail job %s: unexpected payload %T", job.ID, job.Payload)
	}
	img, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("skipping thumbnail for deleted image", zap.String("image_id", id))
			return nil
		}
		return err
	}
	body, err := s.store.Get(ctx, img.StorageKey())
	if err != nil {
		return err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}
	thumb, err := imaging.Thumbnail(data, s.config.ThumbnailSize)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, img.ThumbnailKey(), bytes.NewReader(thumb), img.ThumbnailType())
}

// Get returns image metadata.
func (s *ImageService) Get(ctx context.Context, id string) (*models.Image, error) {
	img, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "image not found", "failed to load image")
	}
	return img, nil
}

// Open returns a stream of the requested variant. A thumbnail that has not
// been rendered yet falls back to the original.
func (s *ImageService) Open(ctx context.Context, id, variant string) (*ImageObject, error) {
	img, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if variant == VariantThumb {
		body, err := s.store.Get(ctx, img.ThumbnailKey())
		if err == nil {
			return &ImageObject{Image: img, ContentType: img.ThumbnailType(), Body: body}, nil
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return nil, internal(err, "failed to open thumbnail")
		}
	}
	body, err := s.store.Get(ctx, img.StorageKey())
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "image content missing")
		}
		return nil, internal(err, "failed to open image")
	}
	return &ImageObject{Image: img, ContentType: img.MimeType, Body: body}, nil
}

// SignedURL returns a time-limited URL for an image variant.
func (s *ImageService) SignedURL(id, variant string) (string, error) {
	if s.signer == nil {
		return "", internal(errors.New("signer not configured"), "failed to sign image url")
	}
	token, _, err := s.signer.Generate(id, variant)
	if err != nil {
		return "", internal(err, "failed to sign image url")
	}
	return fmt.Sprintf("%s/%s?token=%s", s.config.PublicPath, url.PathEscape(id), url.QueryEscape(token)), nil
}

// VerifyToken checks a signed URL token for id and returns the variant it grants.
func (s *ImageService) VerifyToken(token, id string) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "image links are disabled")
	}
	variant, err := s.signer.Verify(token, id)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return "", appErrors.Clone(appErrors.ErrTokenExpired, "image link expired")
		}
		return "", appErrors.Clone(appErrors.ErrTokenInvalid, "invalid image link")
	}
	return variant, nil
}

// DeleteIfUnused removes an image unless equipment other than excludeEquipmentID still references it.
func (s *ImageService) DeleteIfUnused(ctx context.Context, id string, excludeEquipmentID int64) error {
	refs, err := s.refs.CountByImage(ctx, id, excludeEquipmentID)
	if err != nil {
		return internal(err, "failed to count image references")
	}
	if refs > 0 {
		return nil
	}
	img, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return internal(err, "failed to load image")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internal(err, "failed to delete image")
	}
	s.removeObjects(ctx, img)
	return nil
}

func (s *ImageService) removeObjects(ctx context.Context, img *models.Image) {
	for _, key := range []string{img.StorageKey(), img.ThumbnailKey()} {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("failed to delete image object", zap.String("key", key), zap.Error(err))
		}
	}
}

func sanitizeFileName(name, ext string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return "image" + ext
	}
	if len(name) > 255 {
		name = name[len(name)-255:]
	}
	return name
}
