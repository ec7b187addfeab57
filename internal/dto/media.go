package dto

// MediaDescriptor описывает один зашифрованный медиа-блоб внутри входящего
// сообщения: откуда скачать и каким материалом расшифровать.
// Живет ровно один запрос, нигде не персистится.
type MediaDescriptor struct {
	CDNUrl             string             `json:"cdn_url"`
	EncryptionMetadata EncryptionMetadata `json:"encryption_metadata"`
}

type EncryptionMetadata struct {
	EncryptionKey string `json:"encryption_key"` // base64, ровно 32 байта
	HMACKey       string `json:"hmac_key"`       // base64, ровно 32 байта
	IV            string `json:"iv"`             // base64, ровно 16 байт
	EncryptedHash string `json:"encrypted_hash,omitempty"` // base64 SHA-256 всего блоба
	PlaintextHash string `json:"plaintext_hash,omitempty"` // base64 SHA-256 плейнтекста, advisory
}
