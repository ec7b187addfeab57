package cloud_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/1abobik1/FlowStudio/config"
	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

const (
	BucketGenerated = "generated" // результаты генерации
	BucketFaces     = "faces"     // эталонные фото для композитинга
)

const imageMetaOwnerID = "Wa_id"

// Client интерфейс для взаимодействия с Minio
type Client interface {
	InitMinio(minioPort, minioRootUser, minioRootPassword string, minioUseSSL bool) error
	UploadImage(ctx context.Context, bucket, waID string, data []byte, contentType string) (string, error)
	PresignedGetURL(ctx context.Context, bucket, objectKey string) (*url.URL, error)
	CacheImageMeta(ctx context.Context, bucket, objectKey string, meta dto.ImageMeta) error
}

type minioClient struct {
	mc          *minio.Client
	cfg         config.Config
	redisClient *redis.Client
}

func NewMinioClient(cfg config.Config, redisClient *redis.Client) Client {
	return &minioClient{cfg: cfg, redisClient: redisClient}
}

func (m *minioClient) InitMinio(minioPort, minioRootUser, minioRootPassword string, minioUseSSL bool) error {
	ctx := context.Background()

	client, err := minio.New(minioPort, &minio.Options{
		Creds:  credentials.NewStaticV4(minioRootUser, minioRootPassword, ""),
		Secure: minioUseSSL,
	})
	if err != nil {
		return err
	}

	m.mc = client

	buckets := []string{BucketGenerated, BucketFaces}

	for _, bucket := range buckets {
		exists, err := m.mc.BucketExists(ctx, bucket)
		if err != nil {
			return err
		}
		if !exists {
			err := m.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// UploadImage кладёт байты картинки в бакет, кеширует метаданные объекта
// и возвращает object id.
func (m *minioClient) UploadImage(ctx context.Context, bucket, waID string, data []byte, contentType string) (string, error) {
	const op = "location internal.service.cloud_service.UploadImage"

	objID := GenerateObjectID(waID, contentType)

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{imageMetaOwnerID: waID},
	}

	_, err := m.mc.PutObject(ctx, bucket, objID, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", fmt.Errorf("error when creating an object %s: %v", objID, err)
	}

	meta := dto.ImageMeta{
		WaID:      waID,
		ObjID:     objID,
		MimeType:  contentType,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := m.CacheImageMeta(ctx, bucket, objID, meta); err != nil {
		// кеш не критичен для загрузки
		logrus.Warnf("%s: cache meta: %v", op, err)
	}

	return objID, nil
}

// PresignedGetURL отдает ссылку на объект. Перед походом в MinIO проверяется
// redis-кеш: пока закешированная ссылка не истекла, новая не подписывается.
func (m *minioClient) PresignedGetURL(ctx context.Context, bucket, objectKey string) (*url.URL, error) {
	const op = "location internal.service.cloud_service.PresignedGetURL"

	if u, ok := m.cachedPresignedURL(ctx, bucket, objectKey); ok {
		return u, nil
	}

	u, err := m.mc.PresignedGetObject(ctx, bucket, objectKey, m.cfg.Minio.UrlTTL, nil)
	if err != nil {
		return nil, err
	}

	meta := dto.ImageMeta{
		ObjID:     objectKey,
		Url:       u.String(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := m.CacheImageMeta(ctx, bucket, objectKey, meta); err != nil {
		logrus.Warnf("%s: cache meta: %v", op, err)
	}

	return u, nil
}

// CacheImageMeta кеширует метаданные загруженного объекта в Redis.
func (m *minioClient) CacheImageMeta(ctx context.Context, bucket, objectKey string, meta dto.ImageMeta) error {
	key := imageMetaKey(bucket, objectKey)
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	return m.redisClient.Set(ctx, key, data, m.cfg.Redis.ImageMetaTTL).Err()
}

// cachedPresignedURL возвращает закешированную presigned-ссылку, если её
// срок подписи ещё не вышел.
func (m *minioClient) cachedPresignedURL(ctx context.Context, bucket, objectKey string) (*url.URL, bool) {
	const op = "location internal.service.cloud_service.cachedPresignedURL"

	blob, err := m.redisClient.Get(ctx, imageMetaKey(bucket, objectKey)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logrus.Warnf("%s: %v", op, err)
		return nil, false
	}

	var meta dto.ImageMeta
	if err := json.Unmarshal(blob, &meta); err != nil {
		logrus.Warnf("%s: %v", op, err)
		return nil, false
	}
	if meta.Url == "" {
		return nil, false
	}

	createdAt, err := time.Parse(time.RFC3339, meta.CreatedAt)
	if err != nil || time.Since(createdAt) >= m.cfg.Minio.UrlTTL {
		return nil, false
	}

	u, err := url.Parse(meta.Url)
	if err != nil {
		return nil, false
	}
	return u, true
}

func imageMetaKey(bucket, objectKey string) string {
	return fmt.Sprintf("imagemeta:%s:%s", bucket, objectKey)
}

// GenerateObjectID собирает уникальный ключ объекта: <wa_id>/<uuid>.<ext>
func GenerateObjectID(waID, contentType string) string {
	return fmt.Sprintf("%s/%s%s", waID, uuid.NewString(), extFor(contentType))
}

func extFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
