package search

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"
)

func generateTestPrivateKeyPEM(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der := x509.MarshalPKCS1PrivateKey(key)
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})
}

func TestNewProviderFromAppBuildsClientWithoutNetworkCall(t *testing.T) {
	pemBytes := generateTestPrivateKeyPEM(t)
	provider, err := NewProviderFromApp(12345, 67890, pemBytes, "")
	require.NoError(t, err)
	require.NotNil(t, provider.client)
}

func TestNewProviderFromAppRejectsMalformedKey(t *testing.T) {
	_, err := NewProviderFromApp(1, 1, []byte("not a key"), "")
	require.Error(t, err)
}

func TestNewProviderFromAppHonorsEnterpriseBaseURL(t *testing.T) {
	pemBytes := generateTestPrivateKeyPEM(t)
	provider, err := NewProviderFromApp(1, 1, pemBytes, "https://ghe.example.com")
	require.NoError(t, err)
	require.NotNil(t, provider.client)
}
