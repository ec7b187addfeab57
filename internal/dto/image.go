package dto

// ImageMeta — метаданные загруженного в хранилище изображения.
type ImageMeta struct {
	WaID      string `json:"wa_id"`
	ObjID     string `json:"obj_id"`
	Url       string `json:"url"`
	MimeType  string `json:"mime_type"`
	CreatedAt string `json:"created_at"`
}
