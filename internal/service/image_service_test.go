package service

import (
	"bytes"
	"context"
	"image/color"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/models"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/jobs"
	"github.com/noah-isme/office-inventory-api/pkg/storage"
)

type imageFixture struct {
	svc     *ImageService
	repo    *mockImageRepo
	refs    *mockEquipmentRepo
	store   *memoryStore
	queue   *mockQueue
	metrics *MetricsService
}

func newImageFixture(cfg ImageConfig) *imageFixture {
	f := &imageFixture{
		repo:    newMockImageRepo(),
		refs:    newMockEquipmentRepo(),
		store:   newMemoryStore(),
		queue:   &mockQueue{},
		metrics: NewMetricsService(),
	}
	f.svc = NewImageService(f.repo, f.refs, f.store, storage.NewSignedURLSigner("s3cr3t", time.Hour), f.queue, f.metrics, cfg, zap.NewNop())
	return f
}

func TestImageServiceSaveAndDeduplicate(t *testing.T) {
	f := newImageFixture(ImageConfig{ThumbnailsEnabled: true})
	content := pngBytes(t, 8, 6, color.White)

	first, err := f.svc.Save(context.Background(), models.ImageUpload{FileName: "../../etc/photo.png", Content: content})
	require.NoError(t, err)
	assert.Equal(t, "photo.png", first.FileName)
	assert.Equal(t, "image/png", first.MimeType)
	assert.Equal(t, 8, first.Width)
	assert.Equal(t, 6, first.Height)
	assert.Len(t, first.MD5Hash, 32)
	assert.True(t, f.store.has(first.StorageKey()))
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, ThumbnailJobType, f.queue.jobs[0].Type)

	second, err := f.svc.Save(context.Background(), models.ImageUpload{FileName: "other-name.png", Content: content})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.repo.images, 1)
	assert.Len(t, f.queue.jobs, 1)

	snap := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.ImagesStored)
	assert.Equal(t, uint64(1), snap.ImagesDeduplicated)
}

func TestImageServiceSaveRejects(t *testing.T) {
	f := newImageFixture(ImageConfig{MaxUploadBytes: 64})

	_, err := f.svc.Save(context.Background(), models.ImageUpload{FileName: "empty.png"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = f.svc.Save(context.Background(), models.ImageUpload{FileName: "notes.txt", Content: []byte("plain text")})
	assert.Equal(t, appErrors.ErrUnsupportedMedia.Code, errorCode(err))

	_, err = f.svc.Save(context.Background(), models.ImageUpload{FileName: "big.png", Content: bytes.Repeat([]byte{0}, 65)})
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, errorCode(err))

	assert.Empty(t, f.repo.images)
}

func TestImageServiceThumbnailJob(t *testing.T) {
	f := newImageFixture(ImageConfig{ThumbnailsEnabled: true, ThumbnailSize: 4})
	img, err := f.svc.Save(context.Background(), models.ImageUpload{FileName: "p.png", Content: pngBytes(t, 16, 10, color.Black)})
	require.NoError(t, err)

	obj, err := f.svc.Open(context.Background(), img.ID, VariantThumb)
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
	obj.Body.Close()

	require.NoError(t, f.svc.HandleThumbnailJob(context.Background(), f.queue.jobs[0]))
	assert.True(t, f.store.has(img.ID+"_thumb.png"))

	obj, err = f.svc.Open(context.Background(), img.ID, VariantThumb)
	require.NoError(t, err)
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	assert.NoError(t, f.svc.HandleThumbnailJob(context.Background(), jobs.Job{ID: "gone", Payload: "missing"}))
	assert.Error(t, f.svc.HandleThumbnailJob(context.Background(), jobs.Job{ID: "bad", Payload: 42}))
}

func TestImageServiceSignedURLRoundTrip(t *testing.T) {
	f := newImageFixture(ImageConfig{PublicPath: "/api/v1/images/"})

	link, err := f.svc.SignedURL("abc-123", VariantThumb)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "/api/v1/images/abc-123?token="))

	token := strings.TrimPrefix(link, "/api/v1/images/abc-123?token=")
	variant, err := f.svc.VerifyToken(token, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, VariantThumb, variant)

	_, err = f.svc.VerifyToken(token, "other")
	assert.Equal(t, appErrors.ErrTokenInvalid.Code, errorCode(err))
}

func TestImageServiceDeleteIfUnused(t *testing.T) {
	f := newImageFixture(ImageConfig{})
	img, err := f.svc.Save(context.Background(), models.ImageUpload{FileName: "p.png", Content: pngBytes(t, 2, 2, color.White)})
	require.NoError(t, err)

	ref := equipmentItem(5, "Printer", "INV-5")
	ref.ImageID = &img.ID
	f.refs.items[5] = &ref

	require.NoError(t, f.svc.DeleteIfUnused(context.Background(), img.ID, 0))
	assert.Contains(t, f.repo.images, img.ID)

	require.NoError(t, f.svc.DeleteIfUnused(context.Background(), img.ID, 5))
	assert.NotContains(t, f.repo.images, img.ID)
	assert.False(t, f.store.has(img.StorageKey()))

	require.NoError(t, f.svc.DeleteIfUnused(context.Background(), img.ID, 5))
}
