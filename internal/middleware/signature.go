package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SignatureMiddleware проверяет HMAC-SHA256 подпись тела вебхука из
// заголовка X-Hub-Signature-256 ("sha256=<hex>"). Тело читается целиком и
// возвращается в запрос, чтобы хендлер мог его распарсить.
func SignatureMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-Hub-Signature-256")
		if !strings.HasPrefix(header, "sha256=") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logrus.Errorf("signature middleware: read body: %v", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))

		got := strings.TrimPrefix(header, "sha256=")
		if !hmac.Equal([]byte(expected), []byte(got)) {
			logrus.Warn("signature middleware: signature mismatch")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Next()
	}
}
