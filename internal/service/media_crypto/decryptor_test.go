package media_crypto

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/1abobik1/FlowStudio/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// buildBlob собирает блоб так, как его собирает CDN платформы:
// AES-CBC(PKCS#7) и первые 10 байт HMAC-SHA256(iv || ciphertext) в хвосте.
func buildBlob(t *testing.T, encKey, hmacKey, iv, plaintext []byte) []byte {
	t.Helper()

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append(append([]byte{}, plaintext...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	block, err := aes.NewCipher(encKey)
	require.NoError(t, err)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	trailer := mac.Sum(nil)[:macTrailerLen]

	return append(ciphertext, trailer...)
}

func serveBlob(t *testing.T, blob []byte, fetches *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(fetches, 1)
		w.Write(blob)
	}))
}

func descriptorFor(url string, encKey, hmacKey, iv []byte) dto.MediaDescriptor {
	return dto.MediaDescriptor{
		CDNUrl: url,
		EncryptionMetadata: dto.EncryptionMetadata{
			EncryptionKey: base64.StdEncoding.EncodeToString(encKey),
			HMACKey:       base64.StdEncoding.EncodeToString(hmacKey),
			IV:            base64.StdEncoding.EncodeToString(iv),
		},
	}
}

// счётчик вызовов расшифровки, чтобы проверять verify-before-decrypt
func withDecryptCounter(d *Decryptor) *int32 {
	var calls int32
	inner := d.decrypt
	d.decrypt = func(key, iv, ct []byte) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return inner(key, iv, ct)
	}
	return &calls
}

func TestDecryptMedia_Success(t *testing.T) {
	encKey := randBytes(t, 32)
	hmacKey := randBytes(t, 32)
	iv := randBytes(t, 16)
	plaintext := []byte("generated model face bytes, definitely not a square number of them")

	var fetches int32
	srv := serveBlob(t, buildBlob(t, encKey, hmacKey, iv, plaintext), &fetches)
	defer srv.Close()

	d := NewDecryptor(5 * time.Second)
	got, err := d.DecryptMedia(context.Background(), descriptorFor(srv.URL, encKey, hmacKey, iv))
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(got)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetches))
}

func TestDecryptMedia_TamperedTrailer(t *testing.T) {
	encKey := randBytes(t, 32)
	hmacKey := randBytes(t, 32)
	iv := randBytes(t, 16)
	blob := buildBlob(t, encKey, hmacKey, iv, []byte("payload"))

	for i := 0; i < macTrailerLen; i++ {
		tampered := make([]byte, len(blob))
		copy(tampered, blob)
		tampered[len(blob)-macTrailerLen+i] ^= 0x01

		var fetches int32
		srv := serveBlob(t, tampered, &fetches)

		d := NewDecryptor(5 * time.Second)
		calls := withDecryptCounter(d)

		_, err := d.DecryptMedia(context.Background(), descriptorFor(srv.URL, encKey, hmacKey, iv))
		assert.True(t, protocol.IsCode(err, protocol.CodeMACVerificationFailed), "trailer byte %d", i)
		// расшифровка не должна была запускаться
		assert.EqualValues(t, 0, atomic.LoadInt32(calls))

		srv.Close()
	}
}

func TestDecryptMedia_PayloadTooSmall(t *testing.T) {
	var fetches int32
	srv := serveBlob(t, make([]byte, macTrailerLen), &fetches)
	defer srv.Close()

	d := NewDecryptor(5 * time.Second)
	_, err := d.DecryptMedia(context.Background(),
		descriptorFor(srv.URL, randBytes(t, 32), randBytes(t, 32), randBytes(t, 16)))
	assert.True(t, protocol.IsCode(err, protocol.CodePayloadTooSmall))
}

func TestDecryptMedia_MisalignedCiphertext(t *testing.T) {
	hmacKey := randBytes(t, 32)
	iv := randBytes(t, 16)

	// 15 байт шифртекста с корректным усечённым MAC: валидация длины должна
	// сработать после MAC-проверки, но до расшифровки
	ciphertext := randBytes(t, 15)
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	blob := append(ciphertext, mac.Sum(nil)[:macTrailerLen]...)

	var fetches int32
	srv := serveBlob(t, blob, &fetches)
	defer srv.Close()

	d := NewDecryptor(5 * time.Second)
	calls := withDecryptCounter(d)

	_, err := d.DecryptMedia(context.Background(), descriptorFor(srv.URL, randBytes(t, 32), hmacKey, iv))
	assert.True(t, protocol.IsCode(err, protocol.CodeMisalignedCiphertext))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestDecryptMedia_InvalidKeyLength(t *testing.T) {
	var fetches int32
	srv := serveBlob(t, []byte("never fetched"), &fetches)
	defer srv.Close()

	d := NewDecryptor(5 * time.Second)

	for _, n := range []int{31, 33} {
		desc := descriptorFor(srv.URL, randBytes(t, n), randBytes(t, 32), randBytes(t, 16))
		_, err := d.DecryptMedia(context.Background(), desc)
		assert.True(t, protocol.IsCode(err, protocol.CodeInvalidKeyLength), "enc key of %d bytes", n)
	}

	// кривой hmac_key и iv тоже валидируются до сети
	desc := descriptorFor(srv.URL, randBytes(t, 32), randBytes(t, 16), randBytes(t, 16))
	_, err := d.DecryptMedia(context.Background(), desc)
	assert.True(t, protocol.IsCode(err, protocol.CodeInvalidKeyLength))

	desc = descriptorFor(srv.URL, randBytes(t, 32), randBytes(t, 32), randBytes(t, 12))
	_, err = d.DecryptMedia(context.Background(), desc)
	assert.True(t, protocol.IsCode(err, protocol.CodeInvalidKeyLength))

	assert.EqualValues(t, 0, atomic.LoadInt32(&fetches))
}

func TestDecryptMedia_CiphertextDigestMismatch(t *testing.T) {
	encKey := randBytes(t, 32)
	hmacKey := randBytes(t, 32)
	iv := randBytes(t, 16)

	var fetches int32
	srv := serveBlob(t, buildBlob(t, encKey, hmacKey, iv, []byte("payload")), &fetches)
	defer srv.Close()

	desc := descriptorFor(srv.URL, encKey, hmacKey, iv)
	wrong := sha256.Sum256([]byte("something else entirely"))
	desc.EncryptionMetadata.EncryptedHash = base64.StdEncoding.EncodeToString(wrong[:])

	d := NewDecryptor(5 * time.Second)
	calls := withDecryptCounter(d)

	_, err := d.DecryptMedia(context.Background(), desc)
	assert.True(t, protocol.IsCode(err, protocol.CodeCiphertextDigestMismatch))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestDecryptMedia_PlaintextDigestAdvisory(t *testing.T) {
	encKey := randBytes(t, 32)
	hmacKey := randBytes(t, 32)
	iv := randBytes(t, 16)
	plaintext := []byte("face reference")

	var fetches int32
	srv := serveBlob(t, buildBlob(t, encKey, hmacKey, iv, plaintext), &fetches)
	defer srv.Close()

	desc := descriptorFor(srv.URL, encKey, hmacKey, iv)
	wrong := sha256.Sum256([]byte("wrong"))
	desc.EncryptionMetadata.PlaintextHash = base64.StdEncoding.EncodeToString(wrong[:])

	d := NewDecryptor(5 * time.Second)
	got, err := d.DecryptMedia(context.Background(), desc)

	// расхождение advisory: операция всё равно успешна
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(got)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
}

func TestDecryptMedia_FetchFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDecryptor(5 * time.Second)
	_, err := d.DecryptMedia(context.Background(),
		descriptorFor(srv.URL, randBytes(t, 32), randBytes(t, 32), randBytes(t, 16)))
	assert.True(t, protocol.IsCode(err, protocol.CodeFetchFailed))
}

func TestDecryptMedia_FetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	d := NewDecryptor(50 * time.Millisecond)
	_, err := d.DecryptMedia(context.Background(),
		descriptorFor(srv.URL, randBytes(t, 32), randBytes(t, 32), randBytes(t, 16)))
	assert.True(t, protocol.IsCode(err, protocol.CodeFetchTimeout))
}
