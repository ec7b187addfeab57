package keystore

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// просто читает и парсит ключ один раз на старте, не генерирует его.
// Хэндл иммутабелен и переиспользуется всеми запросами — никакого
// пере-импорта ключа на каждый вызов.
type FileKeyStore struct {
	rsaPriv *rsa.PrivateKey
}

// если файл отсутствует или не парсится — возвращает ошибку.
func NewFileKeyStore(rsaPrivPath string) (*FileKeyStore, error) {
	privPEM, err := os.ReadFile(rsaPrivPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read RSA private key %s: %w", rsaPrivPath, err)
	}
	block, _ := pem.Decode(privPEM)
	if block == nil {
		return nil, fmt.Errorf("bad PEM block for RSA private key")
	}

	var rsaPriv *rsa.PrivateKey
	// 1) Попытка PKCS#8 — формат, в котором платформа выдает ключ
	if keyIfc, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		var ok bool
		rsaPriv, ok = keyIfc.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("PKCS8 key is not RSA: %T", keyIfc)
		}
	} else {
		// 2) Попытка PKCS#1
		key, err2 := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err2 != nil {
			return nil, fmt.Errorf("cannot parse RSA private key (tried PKCS8: %v; PKCS1: %v)", err, err2)
		}
		rsaPriv = key
	}

	return &FileKeyStore{rsaPriv: rsaPriv}, nil
}

// возвращает уже считанный ключ
func (ks *FileKeyStore) GetFlowPrivateKey() *rsa.PrivateKey {
	return ks.rsaPriv
}
