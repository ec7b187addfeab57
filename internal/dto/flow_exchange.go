package dto

// FlowExchangeReq — зашифрованный конверт от платформы на data-exchange эндпоинт.
// Все три поля — base64: обёрнутый RSA-OAEP сессионный AES-ключ,
// GCM-шифртекст полезной нагрузки и IV запроса.
type FlowExchangeReq struct {
	EncryptedAESKey   string `json:"encrypted_aes_key" binding:"required"`
	EncryptedFlowData string `json:"encrypted_flow_data" binding:"required"`
	InitialVector     string `json:"initial_vector" binding:"required"`
}

// FlowDataExchange — расшифрованное содержимое конверта.
type FlowDataExchange struct {
	Version   string                 `json:"version"`
	Action    string                 `json:"action"`
	Screen    string                 `json:"screen"`
	FlowToken string                 `json:"flow_token"`
	Data      map[string]interface{} `json:"data"`
}

// FlowResponse — то, что бизнес-слой отдает обратно в шифрованный канал.
type FlowResponse struct {
	Version string                 `json:"version,omitempty"`
	Screen  string                 `json:"screen,omitempty"`
	Data    map[string]interface{} `json:"data"`
}
