package flow_handler_test

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/1abobik1/FlowStudio/internal/dto"
	"github.com/1abobik1/FlowStudio/internal/handler/flow_handler"
	"github.com/1abobik1/FlowStudio/internal/service/flow_crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFlowService struct {
	resp dto.FlowResponse
	err  error
	got  dto.FlowDataExchange
}

func (s *stubFlowService) HandleAction(_ context.Context, payload dto.FlowDataExchange) (dto.FlowResponse, error) {
	s.got = payload
	return s.resp, s.err
}

// makeEnvelope собирает конверт так, как это делает клиент платформы:
// сессионный ключ заворачивается OAEP'ом, полезная нагрузка — GCM.
func makeEnvelope(t *testing.T, pub *rsa.PublicKey, payload dto.FlowDataExchange) (dto.FlowExchangeReq, []byte, []byte) {
	t.Helper()

	aesKey := make([]byte, 32)
	_, err := rand.Read(aesKey)
	require.NoError(t, err)

	iv := make([]byte, 16)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, aesKey, nil)
	require.NoError(t, err)

	plaintext, err := json.Marshal(payload)
	require.NoError(t, err)

	block, err := aes.NewCipher(aesKey)
	require.NoError(t, err)
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	require.NoError(t, err)
	sealed := gcm.Seal(nil, iv, plaintext, nil)

	req := dto.FlowExchangeReq{
		EncryptedAESKey:   base64.StdEncoding.EncodeToString(wrapped),
		EncryptedFlowData: base64.StdEncoding.EncodeToString(sealed),
		InitialVector:     base64.StdEncoding.EncodeToString(iv),
	}
	return req, aesKey, iv
}

func newRouter(t *testing.T, svc flow_handler.FlowService) (*gin.Engine, *rsa.PrivateKey) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	h := flow_handler.NewFlowHandler(flow_crypto.NewChannel(priv), svc)
	r := gin.New()
	r.POST("/flow", h.Exchange)
	return r, priv
}

func TestExchange_Success(t *testing.T) {
	svc := &stubFlowService{resp: dto.FlowResponse{
		Version: "3.0",
		Screen:  "WELCOME",
		Data:    map[string]interface{}{"credits": 3},
	}}
	r, priv := newRouter(t, svc)

	envelope, aesKey, iv := makeEnvelope(t, &priv.PublicKey, dto.FlowDataExchange{
		Version:   "3.0",
		Action:    "INIT",
		FlowToken: "79001234567:3c7d2a1e-0000-0000-0000-000000000000",
	})
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/flow", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "INIT", svc.got.Action)

	// тело — base64, расшифровывается сессионным ключом с инвертированным IV
	sealed, err := base64.StdEncoding.DecodeString(w.Body.String())
	require.NoError(t, err)

	block, err := aes.NewCipher(aesKey)
	require.NoError(t, err)
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	require.NoError(t, err)

	respIV := flow_crypto.FlipIV(iv)
	plaintext, err := gcm.Open(nil, respIV, sealed, nil)
	require.NoError(t, err)

	var resp dto.FlowResponse
	require.NoError(t, json.Unmarshal(plaintext, &resp))
	assert.Equal(t, "WELCOME", resp.Screen)
}

func TestExchange_TamperedEnvelope(t *testing.T) {
	svc := &stubFlowService{}
	r, priv := newRouter(t, svc)

	envelope, _, _ := makeEnvelope(t, &priv.PublicKey, dto.FlowDataExchange{Action: "ping"})
	sealed, err := base64.StdEncoding.DecodeString(envelope.EncryptedFlowData)
	require.NoError(t, err)
	sealed[0] ^= 0x01
	envelope.EncryptedFlowData = base64.StdEncoding.EncodeToString(sealed)

	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/flow", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// детали отказа наружу не уходят: пустой 500
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "", svc.got.Action)
}

func TestExchange_ServiceError(t *testing.T) {
	svc := &stubFlowService{err: errors.New("redis down")}
	r, priv := newRouter(t, svc)

	envelope, _, _ := makeEnvelope(t, &priv.PublicKey, dto.FlowDataExchange{Action: "ping"})
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/flow", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.String())
}
