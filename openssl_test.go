//go:build openssl
// +build openssl

package tlsbench

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenSSLRegistered(t *testing.T) {
	require.Contains(t, BackendNames(), "openssl")
}

func TestOpenSSLRejectsUnpinnableSuite(t *testing.T) {
	backend, err := LookupBackend("openssl")
	require.NoError(t, err)
	_, err = backend.MakeConfig(ModeClient, CryptoConfig{CipherSuite: AES128GCMSHA256}, ServerAuth)
	require.ErrorIs(t, err, ErrUnsupportedParameters)
}

func TestOpenSSLHandshakeGrid(t *testing.T) {
	backend, err := LookupBackend("openssl")
	require.NoError(t, err)
	for _, group := range []ECGroup{X25519, SECP256R1} {
		for _, sig := range []SigType{EC384, RSA2048, RSA4096} {
			for _, handshake := range []HandshakeType{ServerAuth, MutualAuth} {
				crypto := CryptoConfig{CipherSuite: AES256GCMSHA384, Group: group, SigType: sig}
				t.Run(fmt.Sprintf("%s/%s", crypto, handshake), func(t *testing.T) {
					pair, err := NewConnPair(backend, backend, crypto, handshake)
					require.NoError(t, err)
					defer pair.Close()

					require.NoError(t, pair.Handshake())
					require.True(t, pair.HandshakeCompleted())
					require.True(t, pair.NegotiatedTLS13())
					require.Equal(t, AES256GCMSHA384, pair.NegotiatedCipherSuite())

					payload := bytes.Repeat([]byte{0x56}, 4096)
					require.NoError(t, pair.RoundTripTransfer(payload))
					require.Equal(t, bytes.Repeat([]byte{0x56}, 4096), payload)
				})
			}
		}
	}
}

func TestOpenSSLSharesNoSuiteWithPureGoEngines(t *testing.T) {
	// The pure-Go engines can only honor AES_128_GCM_SHA256 and openssl can
	// only honor AES_256_GCM_SHA384, so a mixed pair has no suite label both
	// sides can be honest about. The pairing is rejected at config time in
	// either direction instead of producing a mislabeled measurement.
	ossl, err := LookupBackend("openssl")
	require.NoError(t, err)
	std, err := LookupBackend("stdtls")
	require.NoError(t, err)

	for _, crypto := range []CryptoConfig{
		{CipherSuite: AES128GCMSHA256},
		{CipherSuite: AES256GCMSHA384},
	} {
		_, err := NewConnPair(ossl, std, crypto, ServerAuth)
		require.ErrorIs(t, err, ErrUnsupportedParameters)
		_, err = NewConnPair(std, ossl, crypto, ServerAuth)
		require.ErrorIs(t, err, ErrUnsupportedParameters)
	}
}

func TestOpenSSLRecvPastAvailableData(t *testing.T) {
	backend, err := LookupBackend("openssl")
	require.NoError(t, err)
	pair, err := NewConnPair(backend, backend, CryptoConfig{CipherSuite: AES256GCMSHA384}, ServerAuth)
	require.NoError(t, err)
	defer pair.Close()
	require.NoError(t, pair.Handshake())

	require.NoError(t, pair.Client.Send([]byte("abc")))
	got := make([]byte, 3)
	require.NoError(t, pair.Server.Recv(got))
	require.Equal(t, []byte("abc"), got)

	// The binding rewraps read errors on the way out, so only the failure
	// itself is portable, not the sentinel.
	require.Error(t, pair.Server.Recv(make([]byte, 1)))
}

func BenchmarkHandshake_OpenSSLServer_OpenSSLClient(b *testing.B) {
	benchmarkHandshake(b, OpenSSLBackend{}, OpenSSLBackend{}, CryptoConfig{CipherSuite: AES256GCMSHA384}, ServerAuth)
}

func BenchmarkThroughput_OpenSSL_AES256(b *testing.B) {
	benchmarkRoundTripThroughput(b, OpenSSLBackend{}, CryptoConfig{CipherSuite: AES256GCMSHA384}, 100000)
}
