package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"sync"
	"testing"
)

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
	keyErr  error
)

// RSAKey returns a process-wide 2048-bit test key.
func RSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()

	keyOnce.Do(func() {
		key, keyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if keyErr != nil {
		t.Fatalf("generate rsa key: %v", keyErr)
	}
	return key
}

// PKCS8PEM encodes k the way Google service-account key files do.
func PKCS8PEM(t testing.TB, k *rsa.PrivateKey) []byte {
	t.Helper()

	der, err := x509.MarshalPKCS8PrivateKey(k)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// ServiceAccountKey mirrors the JSON key file downloaded from the console.
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri,omitempty"`
}

// ServiceAccountJSON returns a service_account key file for the shared test
// key. tokenURI may be empty.
func ServiceAccountJSON(t testing.TB, email, tokenURI string) string {
	t.Helper()

	return MarshalKey(t, ServiceAccountKey{
		Type:         "service_account",
		ProjectID:    "roadreport-test",
		PrivateKeyID: "0123456789abcdef",
		PrivateKey:   string(PKCS8PEM(t, RSAKey(t))),
		ClientEmail:  email,
		ClientID:     "1234567890",
		TokenURI:     tokenURI,
	})
}

func MarshalKey(t testing.TB, k ServiceAccountKey) string {
	t.Helper()

	raw, err := json.Marshal(k)
	if err != nil {
		t.Fatalf("marshal service account key: %v", err)
	}
	return string(raw)
}
