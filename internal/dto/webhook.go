package dto

// WebhookEnvelope — верхний уровень вебхука платформы сообщений.
type WebhookEnvelope struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Contacts         []WebhookContact `json:"contacts"`
	Messages         []InboundMessage `json:"messages"`
}

type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// InboundMessage — одно входящее сообщение. Для image-сообщений платформа
// вкладывает дескриптор зашифрованного медиа.
type InboundMessage struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	Type  string `json:"type"`
	Text  *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image *MediaDescriptor `json:"image,omitempty"`
}

// PaymentEvent — событие от платёжного шлюза (после проверки HMAC-подписи).
type PaymentEvent struct {
	Type string `json:"type"`
	Data struct {
		WaID    string `json:"wa_id"`
		Credits int    `json:"credits"`
	} `json:"data"`
}
