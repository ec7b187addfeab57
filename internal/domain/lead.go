package domain

import "time"

// Lead — запись о пользователе бота: кто писал и какое эталонное фото
// (object id в бакете faces) он прислал для композитинга.
type Lead struct {
	WaID         string    `json:"wa_id"`
	Name         string    `json:"name"`
	FirstMessage string    `json:"first_message,omitempty"`
	FaceObjectID string    `json:"face_object_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// FlowSession — состояние одного прохода по flow, ключуется flow_token.
type FlowSession struct {
	Token     string    `json:"token"`
	WaID      string    `json:"wa_id"`
	Screen    string    `json:"screen"`
	Prompt    string    `json:"prompt,omitempty"`
	Style     string    `json:"style,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
