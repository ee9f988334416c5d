package tlsbench

import (
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"
)

var allPemTypes = []PemType{CACert, ServerKey, ServerChain, ClientKey, ClientChain}

func TestCredentialSetsComplete(t *testing.T) {
	for _, sig := range []SigType{EC384, RSA2048, RSA4096} {
		for _, kind := range allPemTypes {
			data, err := ReadCredential(kind, sig)
			require.NoError(t, err)
			block, _ := pem.Decode(data)
			require.NotNil(t, block, "%s/%s is not PEM", sig, kind.fileName())
		}
	}
}

func TestChainsVerifyAgainstOwnCA(t *testing.T) {
	for _, sig := range []SigType{EC384, RSA2048, RSA4096} {
		caPEM, err := ReadCredential(CACert, sig)
		require.NoError(t, err)
		roots := x509.NewCertPool()
		require.True(t, roots.AppendCertsFromPEM(caPEM))

		for _, kind := range []PemType{ServerChain, ClientChain} {
			chainPEM, err := ReadCredential(kind, sig)
			require.NoError(t, err)
			blocks := splitCertificatePEM(chainPEM)
			require.NotEmpty(t, blocks)

			leaf, err := x509.ParseCertificate(mustDecodePEM(t, blocks[0]))
			require.NoError(t, err)
			intermediates := x509.NewCertPool()
			for _, block := range blocks[1:] {
				require.True(t, intermediates.AppendCertsFromPEM(block))
			}
			opts := x509.VerifyOptions{
				Roots:         roots,
				Intermediates: intermediates,
				KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
			}
			_, err = leaf.Verify(opts)
			require.NoError(t, err, "%s/%s", sig, kind.fileName())
		}
	}
}

func TestServerLeafNamesLocalhost(t *testing.T) {
	for _, sig := range []SigType{EC384, RSA2048, RSA4096} {
		chainPEM, err := ReadCredential(ServerChain, sig)
		require.NoError(t, err)
		blocks := splitCertificatePEM(chainPEM)
		require.NotEmpty(t, blocks)
		leaf, err := x509.ParseCertificate(mustDecodePEM(t, blocks[0]))
		require.NoError(t, err)
		require.NoError(t, leaf.VerifyHostname(serverName))
	}
}

func TestCredentialDirOverride(t *testing.T) {
	t.Setenv(certEnvVar, t.TempDir())
	_, err := ReadCredential(CACert, EC384)
	require.Error(t, err)
}

func mustDecodePEM(t *testing.T, data []byte) []byte {
	t.Helper()
	block, _ := pem.Decode(data)
	require.NotNil(t, block)
	return block.Bytes
}
