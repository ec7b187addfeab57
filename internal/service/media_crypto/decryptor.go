package media_crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/1abobik1/FlowStudio/internal/protocol"
	"github.com/sirupsen/logrus"
)

const (
	encKeyLen     = 32
	hmacKeyLen    = 32
	ivLen         = 16
	macTrailerLen = 10 // платформа обрезает HMAC до 10 байт — контракт, не улучшать
)

// Decryptor скачивает зашифрованный медиа-блоб по CDN-URL и расшифровывает
// его материалом из дескриптора. Формат блоба: ciphertext || trailer(10 байт),
// где trailer — первые 10 байт HMAC-SHA256(hmacKey, iv || ciphertext).
type Decryptor struct {
	httpClient *http.Client

	// подменяется в тестах, чтобы убедиться что при плохом MAC расшифровка не вызывается
	decrypt func(key, iv, ciphertext []byte) ([]byte, error)
}

// NewDecryptor создает дешифратор с ограниченным таймаутом на скачивание.
// CDN-ссылки одноразовые, ретраев нет — зависший fetch обрезается таймаутом.
func NewDecryptor(fetchTimeout time.Duration) *Decryptor {
	return &Decryptor{
		httpClient: &http.Client{Timeout: fetchTimeout},
		decrypt:    decryptCBC,
	}
}

// DecryptMedia выполняет полный цикл: валидация ключей, fetch, проверка
// digest'ов и MAC, CBC-расшифровка. Возвращает плейнтекст в base64.
func (d *Decryptor) DecryptMedia(ctx context.Context, desc dto.MediaDescriptor) (string, error) {
	const op = "location internal.service.media_crypto.DecryptMedia"

	// валидация материала до любого сетевого I/O
	encKey, err := decodeKeyField("encryption_key", desc.EncryptionMetadata.EncryptionKey, encKeyLen)
	if err != nil {
		return "", err
	}
	hmacKey, err := decodeKeyField("hmac_key", desc.EncryptionMetadata.HMACKey, hmacKeyLen)
	if err != nil {
		return "", err
	}
	iv, err := decodeKeyField("iv", desc.EncryptionMetadata.IV, ivLen)
	if err != nil {
		return "", err
	}

	buf, err := d.fetch(ctx, desc.CDNUrl)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return "", err
	}

	if len(buf) <= macTrailerLen {
		return "", protocol.Errorf(protocol.CodePayloadTooSmall,
			"fetched %d bytes, cannot contain MAC trailer and ciphertext", len(buf))
	}

	// digest всего блоба как он пришел, до отрезания трейлера
	if expected := desc.EncryptionMetadata.EncryptedHash; expected != "" {
		sum := sha256.Sum256(buf)
		if base64.StdEncoding.EncodeToString(sum[:]) != expected {
			return "", protocol.Errorf(protocol.CodeCiphertextDigestMismatch,
				"encrypted blob digest does not match descriptor")
		}
	}

	ciphertext := buf[:len(buf)-macTrailerLen]
	trailer := buf[len(buf)-macTrailerLen:]

	// verify-before-decrypt: сначала MAC, расшифровка испорченных данных не запускается
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	if !hmac.Equal(mac.Sum(nil)[:macTrailerLen], trailer) {
		return "", protocol.Errorf(protocol.CodeMACVerificationFailed,
			"truncated MAC trailer does not match")
	}

	if len(ciphertext)%aes.BlockSize != 0 {
		return "", protocol.Errorf(protocol.CodeMisalignedCiphertext,
			"ciphertext length %d is not a multiple of the AES block", len(ciphertext))
	}

	plaintext, err := d.decrypt(encKey, iv, ciphertext)
	if err != nil {
		logrus.Errorf("%s: %v", op, err)
		return "", protocol.NewError(protocol.CodeDecryptFailed, err)
	}

	// advisory-проверка: расхождение логируем, но результат все равно отдаем
	if expected := desc.EncryptionMetadata.PlaintextHash; expected != "" {
		sum := sha256.Sum256(plaintext)
		if base64.StdEncoding.EncodeToString(sum[:]) != expected {
			logrus.Warnf("%s: plaintext digest mismatch for %s (advisory, result returned)", op, desc.CDNUrl)
		}
	}

	return base64.StdEncoding.EncodeToString(plaintext), nil
}

func (d *Decryptor) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeFetchFailed, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, protocol.NewError(protocol.CodeFetchTimeout, err)
		}
		return nil, protocol.NewError(protocol.CodeFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, protocol.Errorf(protocol.CodeFetchFailed, "cdn returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, protocol.NewError(protocol.CodeFetchTimeout, err)
		}
		return nil, protocol.NewError(protocol.CodeFetchFailed, err)
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func decodeKeyField(field, value string, wantLen int) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, protocol.Errorf(protocol.CodeInvalidKeyLength, "%s: %v", field, err)
	}
	if len(b) != wantLen {
		return nil, protocol.Errorf(protocol.CodeInvalidKeyLength,
			"%s: got %d bytes, want %d", field, len(b), wantLen)
	}
	return b, nil
}

func decryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes init: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// pkcs7Unpad снимает PKCS#7-паддинг и проверяет, что все padding-байты одинаковы.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen < 1 || padLen > blockSize {
		return nil, fmt.Errorf("invalid padding length %d", padLen)
	}
	for i := 0; i < padLen; i++ {
		if int(data[len(data)-1-i]) != padLen {
			return nil, fmt.Errorf("corrupted padding at byte %d", len(data)-1-i)
		}
	}
	return data[:len(data)-padLen], nil
}
