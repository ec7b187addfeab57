package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ImageGenClient вызывает API генерации изображений.
// Один вызов — одна картинка; ответ приходит как base64 внутри JSON.
type ImageGenClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewImageGenClient(baseURL, apiKey string, timeout time.Duration) *ImageGenClient {
	return &ImageGenClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateReq struct {
	Prompt  string `json:"prompt"`
	FaceURL string `json:"face_url,omitempty"` // эталонное фото для композитинга
	Size    string `json:"size"`
}

type generateResp struct {
	ImageB64 string `json:"image_b64"`
	MimeType string `json:"mime_type"`
}

// Generate генерирует изображение по промпту; faceURL опционален.
func (g *ImageGenClient) Generate(ctx context.Context, prompt, faceURL string) ([]byte, string, error) {
	body, err := json.Marshal(generateReq{Prompt: prompt, FaceURL: faceURL, Size: "1024x1024"})
	if err != nil {
		return nil, "", fmt.Errorf("marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/generations", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request to image api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image api returned status %d", resp.StatusCode)
	}

	var out generateResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("decode image api response: %w", err)
	}

	img, err := base64.StdEncoding.DecodeString(out.ImageB64)
	if err != nil {
		return nil, "", fmt.Errorf("decode image bytes: %w", err)
	}

	mime := out.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return img, mime, nil
}
