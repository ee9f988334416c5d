package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"

	tlsbench "github.com/tlsbench/go-tls-bench"
)

// runConfig is the TOML shape of a benchmark run. Flags override whatever the
// file sets.
type runConfig struct {
	Backends   []string `toml:"backends"`
	Suites     []string `toml:"suites"`
	Groups     []string `toml:"groups"`
	SigTypes   []string `toml:"sigtypes"`
	Mutual     bool     `toml:"mutual"`
	Payload    int      `toml:"payload"`
	Iterations int      `toml:"iterations"`
}

func defaultRunConfig() runConfig {
	return runConfig{
		Backends:   tlsbench.BackendNames(),
		Suites:     []string{"AES_128_GCM_SHA256", "AES_256_GCM_SHA384"},
		Groups:     []string{"X25519", "SECP256R1"},
		SigTypes:   []string{"ec384", "rsa2048", "rsa4096"},
		Payload:    1000000,
		Iterations: 10,
	}
}

var log = logrus.New()

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "TOML run configuration file")
	backendsFlag := flag.String("backends", "", "comma-separated backend names (default: all registered)")
	payloadFlag := flag.Int("payload", 0, "round-trip payload size in bytes")
	iterationsFlag := flag.Int("iterations", 0, "handshakes per parameter combination")
	mutualFlag := flag.Bool("mutual", false, "request client certificates")
	profileMode := flag.String("profile", "", "write a profile of this run: cpu or mem")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := defaultRunConfig()
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
			return fmt.Errorf("load config %s: %w", *configPath, err)
		}
	}
	if *backendsFlag != "" {
		cfg.Backends = strings.Split(*backendsFlag, ",")
	}
	if *payloadFlag > 0 {
		cfg.Payload = *payloadFlag
	}
	if *iterationsFlag > 0 {
		cfg.Iterations = *iterationsFlag
	}
	if *mutualFlag {
		cfg.Mutual = true
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *profileMode)
	}

	log.WithFields(logrus.Fields{
		"backends":   cfg.Backends,
		"payload":    cfg.Payload,
		"iterations": cfg.Iterations,
		"mutual":     cfg.Mutual,
		"aes_gcm_hw": tlsbench.AESGCMAccelerated(),
	}).Info("starting benchmark run")

	handshake := tlsbench.ServerAuth
	if cfg.Mutual {
		handshake = tlsbench.MutualAuth
	}

	grid, err := cryptoGrid(cfg)
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, name := range cfg.Backends {
		backend, err := tlsbench.LookupBackend(name)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		for _, crypto := range grid {
			if err := runCombination(backend, crypto, handshake, cfg); err != nil {
				if errors.Is(err, tlsbench.ErrUnsupportedParameters) {
					log.WithFields(logrus.Fields{
						"backend": name,
						"params":  crypto.String(),
					}).Warn("skipping unsupported parameter combination")
					continue
				}
				result = multierror.Append(result, fmt.Errorf("%s %s: %w", name, crypto, err))
			}
		}
	}
	return result.ErrorOrNil()
}

// cryptoGrid expands the configured parameter names into the cross product of
// crypto configurations. Unknown names abort the run up front rather than
// partway through the grid.
func cryptoGrid(cfg runConfig) ([]tlsbench.CryptoConfig, error) {
	var grid []tlsbench.CryptoConfig
	for _, suiteName := range cfg.Suites {
		suite, err := parseSuite(suiteName)
		if err != nil {
			return nil, err
		}
		for _, groupName := range cfg.Groups {
			group, err := parseGroup(groupName)
			if err != nil {
				return nil, err
			}
			for _, sigName := range cfg.SigTypes {
				sig, err := parseSigType(sigName)
				if err != nil {
					return nil, err
				}
				grid = append(grid, tlsbench.CryptoConfig{CipherSuite: suite, Group: group, SigType: sig})
			}
		}
	}
	return grid, nil
}

func runCombination(backend tlsbench.Backend, crypto tlsbench.CryptoConfig, handshake tlsbench.HandshakeType, cfg runConfig) error {
	entry := log.WithFields(logrus.Fields{
		"backend": backend.Name(),
		"params":  crypto.String(),
	})

	var handshakeTotal time.Duration
	for i := 0; i < cfg.Iterations; i++ {
		pair, err := tlsbench.NewConnPair(backend, backend, crypto, handshake)
		if err != nil {
			return err
		}
		start := time.Now()
		err = pair.Handshake()
		handshakeTotal += time.Since(start)
		if err != nil {
			pair.Close()
			return err
		}
		if !pair.NegotiatedTLS13() {
			pair.Close()
			return fmt.Errorf("%w: negotiated protocol below TLS 1.3", tlsbench.ErrHandshakeFailed)
		}
		// Results are labeled with the requested parameters; a run that
		// negotiated anything else must not be reported as clean.
		if got := pair.NegotiatedCipherSuite(); got != crypto.CipherSuite {
			pair.Close()
			return fmt.Errorf("%w: negotiated %s, requested %s", tlsbench.ErrHandshakeFailed, got, crypto.CipherSuite)
		}
		if i < cfg.Iterations-1 {
			pair.Close()
			continue
		}

		// Reuse the last pair for the transfer measurement.
		payload := make([]byte, cfg.Payload)
		for j := range payload {
			payload[j] = 0x56
		}
		start = time.Now()
		err = pair.RoundTripTransfer(payload)
		transfer := time.Since(start)
		pair.Close()
		if err != nil {
			return err
		}

		entry.WithFields(logrus.Fields{
			"handshake_avg": handshakeTotal / time.Duration(cfg.Iterations),
			"transfer":      transfer,
			"throughput_mb": float64(2*cfg.Payload) / 1e6 / transfer.Seconds(),
		}).Info("combination complete")
	}
	return nil
}

func parseSuite(name string) (tlsbench.CipherSuite, error) {
	switch name {
	case "AES_128_GCM_SHA256":
		return tlsbench.AES128GCMSHA256, nil
	case "AES_256_GCM_SHA384":
		return tlsbench.AES256GCMSHA384, nil
	}
	return 0, fmt.Errorf("unknown cipher suite %q", name)
}

func parseGroup(name string) (tlsbench.ECGroup, error) {
	switch name {
	case "X25519":
		return tlsbench.X25519, nil
	case "SECP256R1":
		return tlsbench.SECP256R1, nil
	}
	return 0, fmt.Errorf("unknown group %q", name)
}

func parseSigType(name string) (tlsbench.SigType, error) {
	switch name {
	case "ec384":
		return tlsbench.EC384, nil
	case "rsa2048":
		return tlsbench.RSA2048, nil
	case "rsa4096":
		return tlsbench.RSA4096, nil
	}
	return 0, fmt.Errorf("unknown signature type %q", name)
}
