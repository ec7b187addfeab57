package protocol

import (
	"errors"
	"fmt"
)

// Машиночитаемые суб-коды протокольных ошибок. Каждый код терминален для
// текущего запроса — внутренних ретраев нет, диспетчер отвечает платформе
// обычным 500 без деталей.
const (
	CodeMissingField             = "missing-field"
	CodeKeyUnwrapFailed          = "key-unwrap-failed"
	CodeDecryptFailed            = "decrypt-failed"
	CodeInvalidJSON              = "invalid-json"
	CodeEncryptFailed            = "encrypt-failed"
	CodeInvalidKeyLength         = "invalid-key-length"
	CodeFetchFailed              = "fetch-failed"
	CodeFetchTimeout             = "fetch-timeout"
	CodePayloadTooSmall          = "payload-too-small"
	CodeCiphertextDigestMismatch = "ciphertext-digest-mismatch"
	CodeMACVerificationFailed    = "mac-verification-failed"
	CodeMisalignedCiphertext     = "misaligned-ciphertext"
)

// ProtocolError — единый вид ошибок двух протокольных движков.
// Code всегда один из констант выше, cause уходит только в логи.
type ProtocolError struct {
	Code  string
	cause error
}

func NewError(code string, cause error) *ProtocolError {
	return &ProtocolError{Code: code, cause: cause}
}

func Errorf(code, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Code: code, cause: fmt.Errorf(format, args...)}
}

func (e *ProtocolError) Error() string {
	if e.cause == nil {
		return "protocol error: " + e.Code
	}
	return fmt.Sprintf("protocol error: %s: %v", e.Code, e.cause)
}

func (e *ProtocolError) Unwrap() error {
	return e.cause
}

// IsCode проверяет, что err (или любая из обёрнутых ошибок) несёт данный суб-код.
func IsCode(err error, code string) bool {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}
