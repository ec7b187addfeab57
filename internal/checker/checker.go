package checker

import (
	"fmt"
	"os"
)

// CheckKeys проверяет наличие приватного RSA-ключа flow-канала и публичного
// JWT-ключа. Ключи не генерируются — только читаются.
func CheckKeys(flowRSAPriv, jwtPub string) error {
	if !fileExists(flowRSAPriv) {
		return fmt.Errorf("the flow RSA private key does not exist")
	}

	if !fileExists(jwtPub) {
		return fmt.Errorf("the JWT public key does not exist")
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
