package tlsbench

import (
	"errors"
	"testing"

	pool "github.com/libp2p/go-buffer-pool"
)

//////
// Handshake throughput
//////

func BenchmarkHandshake_StdTLSServer_StdTLSClient(b *testing.B) {
	benchmarkHandshake(b, StdTLSBackend{}, StdTLSBackend{}, CryptoConfig{}, ServerAuth)
}

func BenchmarkHandshake_UTLSServer_UTLSClient(b *testing.B) {
	benchmarkHandshake(b, UTLSBackend{}, UTLSBackend{}, CryptoConfig{}, ServerAuth)
}

func BenchmarkHandshake_StdTLSServer_UTLSClient(b *testing.B) {
	benchmarkHandshake(b, UTLSBackend{}, StdTLSBackend{}, CryptoConfig{}, ServerAuth)
}

func BenchmarkHandshake_UTLSServer_StdTLSClient(b *testing.B) {
	benchmarkHandshake(b, StdTLSBackend{}, UTLSBackend{}, CryptoConfig{}, ServerAuth)
}

func BenchmarkHandshakeMutualAuth_StdTLSServer_StdTLSClient(b *testing.B) {
	benchmarkHandshake(b, StdTLSBackend{}, StdTLSBackend{}, CryptoConfig{}, MutualAuth)
}

func BenchmarkHandshakeRSA2048_StdTLSServer_StdTLSClient(b *testing.B) {
	benchmarkHandshake(b, StdTLSBackend{}, StdTLSBackend{}, CryptoConfig{SigType: RSA2048}, ServerAuth)
}

func BenchmarkHandshakeRSA4096_StdTLSServer_StdTLSClient(b *testing.B) {
	benchmarkHandshake(b, StdTLSBackend{}, StdTLSBackend{}, CryptoConfig{SigType: RSA4096}, ServerAuth)
}

func BenchmarkHandshakeP256_StdTLSServer_StdTLSClient(b *testing.B) {
	benchmarkHandshake(b, StdTLSBackend{}, StdTLSBackend{}, CryptoConfig{Group: SECP256R1}, ServerAuth)
}

// The generic function to benchmark the cooperative handshake. Pair
// construction happens off the clock; only the stepping is measured.
func benchmarkHandshake(b *testing.B, client, server Backend, crypto CryptoConfig, handshake HandshakeType) {
	clientCfg, err := client.MakeConfig(ModeClient, crypto, handshake)
	if errors.Is(err, ErrUnsupportedParameters) {
		b.Skip(err)
	}
	if err != nil {
		b.Fatal(err)
	}
	serverCfg, err := server.MakeConfig(ModeServer, crypto, handshake)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		buf := NewConnectedBuffer()
		serverConn, err := server.NewConnection(serverCfg, buf)
		if err != nil {
			b.Fatal(err)
		}
		clientConn, err := client.NewConnection(clientCfg, buf.Inverse())
		if err != nil {
			b.Fatal(err)
		}
		pair := WrapConnPair(clientConn, serverConn)
		b.StartTimer()

		if err := pair.Handshake(); err != nil {
			b.Fatal(err)
		}

		b.StopTimer()
		pair.Close()
		b.StartTimer()
	}
}

//////
// Record throughput
//////

func BenchmarkThroughput_StdTLS_AES128(b *testing.B) {
	benchmarkRoundTripThroughput(b, StdTLSBackend{}, CryptoConfig{CipherSuite: AES128GCMSHA256}, 100000)
}

func BenchmarkThroughput_UTLS_AES128(b *testing.B) {
	benchmarkRoundTripThroughput(b, UTLSBackend{}, CryptoConfig{CipherSuite: AES128GCMSHA256}, 100000)
}

// The generic function to benchmark steady-state record throughput over an
// established pair. Each iteration moves the payload through both directions,
// so the reported rate counts twice the payload size.
func benchmarkRoundTripThroughput(b *testing.B, backend Backend, crypto CryptoConfig, size int) {
	pair, err := NewConnPair(backend, backend, crypto, ServerAuth)
	if errors.Is(err, ErrUnsupportedParameters) {
		b.Skip(err)
	}
	if err != nil {
		b.Fatal(err)
	}
	defer pair.Close()
	if err := pair.Handshake(); err != nil {
		b.Fatal(err)
	}

	payload := pool.Get(size)
	defer pool.Put(payload)
	for i := range payload {
		payload[i] = 0x56
	}

	b.SetBytes(int64(2 * size))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := pair.RoundTripTransfer(payload); err != nil {
			b.Fatal(err)
		}
	}
}
