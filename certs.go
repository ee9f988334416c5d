package tlsbench

import (
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// PemType names one credential file of a signature-type set.
type PemType int

const (
	CACert PemType = iota
	ServerKey
	ServerChain
	ClientKey
	ClientChain
)

func (p PemType) fileName() string {
	switch p {
	case CACert:
		return "ca-cert.pem"
	case ServerKey:
		return "server-key.pem"
	case ServerChain:
		return "server-chain.pem"
	case ClientKey:
		return "client-key.pem"
	case ClientChain:
		return "client-chain.pem"
	default:
		return fmt.Sprintf("pem(%d)", int(p))
	}
}

// certEnvVar overrides the credential directory, e.g. for running the
// drivers against a different certificate set.
const certEnvVar = "TLSBENCH_CERT_DIR"

var packageDir = func() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Dir(file)
}()

// CertDir returns the root of the credential tree: one subdirectory per
// signature type, each holding the CA, server, and client PEM files.
func CertDir() string {
	if dir := os.Getenv(certEnvVar); dir != "" {
		return dir
	}
	return filepath.Join(packageDir, "certs")
}

// CertPath returns the on-disk location of one credential file.
func CertPath(kind PemType, sig SigType) string {
	return filepath.Join(CertDir(), sig.String(), kind.fileName())
}

// ReadCredential loads one PEM-encoded credential, keyed by role file kind
// and signature type. A missing file is fatal to the benchmark run; callers
// do not fall back or substitute.
func ReadCredential(kind PemType, sig SigType) ([]byte, error) {
	data, err := os.ReadFile(CertPath(kind, sig))
	if err != nil {
		return nil, fmt.Errorf("read credential %s/%s: %w", sig, kind.fileName(), err)
	}
	return data, nil
}

// splitCertificatePEM splits a chain file into its individual CERTIFICATE
// blocks, leaf first, each re-encoded as standalone PEM.
func splitCertificatePEM(data []byte) [][]byte {
	var certs [][]byte
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		certs = append(certs, pem.EncodeToMemory(block))
	}
	return certs
}
