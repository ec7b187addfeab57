package cloud_service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/1abobik1/FlowStudio/config"
	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedClient(t *testing.T) (*minioClient, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	cfg := config.Config{}
	cfg.Minio.UrlTTL = time.Hour
	cfg.Redis.ImageMetaTTL = 24 * time.Hour

	// mc остаётся nil: тесты кеша не должны доходить до MinIO
	return &minioClient{cfg: cfg, redisClient: db}, mock
}

func TestPresignedGetURL_CacheHit(t *testing.T) {
	m, mock := newCachedClient(t)

	meta := dto.ImageMeta{
		ObjID:     "79990001122/obj-1.png",
		Url:       "https://minio.example/generated/79990001122/obj-1.png?sig=abc",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	blob, err := json.Marshal(meta)
	require.NoError(t, err)

	mock.ExpectGet("imagemeta:generated:79990001122/obj-1.png").SetVal(string(blob))

	u, err := m.PresignedGetURL(context.Background(), BucketGenerated, "79990001122/obj-1.png")
	require.NoError(t, err)
	assert.Equal(t, meta.Url, u.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresignedGetURL_ExpiredCacheIsMiss(t *testing.T) {
	m, mock := newCachedClient(t)

	// подпись истекла: закешированная ссылка старше UrlTTL
	stale := dto.ImageMeta{
		ObjID:     "79990001122/obj-1.png",
		Url:       "https://minio.example/generated/79990001122/obj-1.png?sig=old",
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour).Format(time.RFC3339),
	}
	blob, err := json.Marshal(stale)
	require.NoError(t, err)

	mock.ExpectGet("imagemeta:generated:79990001122/obj-1.png").SetVal(string(blob))

	_, ok := m.cachedPresignedURL(context.Background(), BucketGenerated, "79990001122/obj-1.png")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresignedGetURL_MetaWithoutURLIsMiss(t *testing.T) {
	m, mock := newCachedClient(t)

	// метаданные от загрузки ссылку ещё не содержат
	uploaded := dto.ImageMeta{
		WaID:      "79990001122",
		ObjID:     "79990001122/obj-1.png",
		MimeType:  "image/png",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	blob, err := json.Marshal(uploaded)
	require.NoError(t, err)

	mock.ExpectGet("imagemeta:generated:79990001122/obj-1.png").SetVal(string(blob))

	_, ok := m.cachedPresignedURL(context.Background(), BucketGenerated, "79990001122/obj-1.png")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheImageMeta(t *testing.T) {
	m, mock := newCachedClient(t)

	meta := dto.ImageMeta{
		WaID:      "79990001122",
		ObjID:     "79990001122/obj-1.png",
		MimeType:  "image/png",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	blob, err := json.Marshal(meta)
	require.NoError(t, err)

	mock.ExpectSet("imagemeta:faces:79990001122/obj-1.png", blob, 24*time.Hour).SetVal("OK")

	err = m.CacheImageMeta(context.Background(), BucketFaces, "79990001122/obj-1.png", meta)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
