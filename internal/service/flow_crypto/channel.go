package flow_crypto

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/1abobik1/FlowStudio/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Channel реализует шифрованный контракт data-exchange эндпоинта:
// расшифровка входящего конверта и шифрование ответа тем же сессионным
// ключом, но с инвертированным IV. Никакого состояния между запросами —
// ключ и IV живут ровно один запрос и протаскиваются явно.
type Channel struct {
	priv *rsa.PrivateKey
}

func NewChannel(priv *rsa.PrivateKey) *Channel {
	return &Channel{priv: priv}
}

// Inbound — результат расшифровки конверта. AESKey и RequestIV — те же самые
// байты, что использовались для расшифровки; они переиспользуются на
// ответной ветке (IV — в инвертированном виде), заново ничего не выводится.
type Inbound struct {
	Payload   dto.FlowDataExchange
	AESKey    []byte
	RequestIV []byte
}

// DecryptInbound разворачивает сессионный AES-ключ через RSA-OAEP/SHA-256,
// открывает GCM-шифртекст и парсит плейнтекст как JSON.
func (c *Channel) DecryptInbound(req dto.FlowExchangeReq) (*Inbound, error) {
	const op = "location internal.service.flow_crypto.DecryptInbound"

	if req.EncryptedAESKey == "" || req.EncryptedFlowData == "" || req.InitialVector == "" {
		return nil, protocol.Errorf(protocol.CodeMissingField,
			"encrypted_aes_key/encrypted_flow_data/initial_vector is required")
	}

	wrappedKey, err := base64.StdEncoding.DecodeString(req.EncryptedAESKey)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return nil, protocol.NewError(protocol.CodeKeyUnwrapFailed, err)
	}

	// разворачиваем сессионный ключ долгоживущим приватным ключом
	aesKey, err := c.priv.Decrypt(nil, wrappedKey, &rsa.OAEPOptions{Hash: crypto.SHA256})
	if err != nil {
		logrus.Errorf("%s: unwrap error: %v", op, err)
		return nil, protocol.NewError(protocol.CodeKeyUnwrapFailed, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(req.EncryptedFlowData)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return nil, protocol.NewError(protocol.CodeDecryptFailed, err)
	}

	iv, err := base64.StdEncoding.DecodeString(req.InitialVector)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return nil, protocol.NewError(protocol.CodeDecryptFailed, err)
	}

	plaintext, err := openGCM(aesKey, iv, ciphertext)
	if err != nil {
		// тампер и кривой шифртекст для вызывающего неразличимы — запрос отклоняется
		logrus.Errorf("%s: %v", op, err)
		return nil, protocol.NewError(protocol.CodeDecryptFailed, err)
	}

	var payload dto.FlowDataExchange
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		logrus.Errorf("%s: %v", op, err)
		return nil, protocol.NewError(protocol.CodeInvalidJSON, err)
	}

	return &Inbound{Payload: payload, AESKey: aesKey, RequestIV: iv}, nil
}

// EncryptOutbound сериализует ответ бизнес-слоя и шифрует его тем же
// сессионным ключом с responseIV = побайтовое инвертирование requestIV.
// Трансформация обязательна: так клиент платформы различает направление
// без второго обмена ключами. Возвращает base64-строку — она и есть тело
// HTTP-ответа.
func (c *Channel) EncryptOutbound(resp interface{}, aesKey, requestIV []byte) (string, error) {
	const op = "location internal.service.flow_crypto.EncryptOutbound"

	plaintext, err := json.Marshal(resp)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return "", protocol.NewError(protocol.CodeEncryptFailed, err)
	}

	sealed, err := sealGCM(aesKey, FlipIV(requestIV), plaintext)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return "", protocol.NewError(protocol.CodeEncryptFailed, err)
	}

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// FlipIV возвращает побайтовое дополнение IV. Инволюция: FlipIV(FlipIV(v)) == v.
func FlipIV(iv []byte) []byte {
	flipped := make([]byte, len(iv))
	for i, b := range iv {
		flipped[i] = ^b
	}
	return flipped
}

func openGCM(key, iv, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, iv, ciphertext, nil)
}

func sealGCM(key, iv, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}
	// тег (16 байт) дописывается в хвост шифртекста
	return gcm.Seal(nil, iv, plaintext, nil), nil
}

func newGCM(key, iv []byte) (cipher.AEAD, error) {
	if len(iv) == 0 {
		return nil, errors.New("empty IV")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes init: %w", err)
	}
	// платформа шлет 128-битный IV, а не стандартные 96 бит GCM
	return cipher.NewGCMWithNonceSize(block, len(iv))
}
