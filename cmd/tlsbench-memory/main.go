package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"

	tlsbench "github.com/tlsbench/go-tls-bench"
)

// The sweep holds many handshaked connections live at once and snapshots the
// heap after each one, so per-connection memory cost can be read off as the
// slope across snapshots. Connections are shrunk first: what remains is what
// a long-lived idle session genuinely costs.

var log = logrus.New()

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	backendName := flag.String("backend", "stdtls", "backend to measure")
	mode := flag.String("mode", "pair", "which side to keep live: pair, client or server")
	count := flag.Int("count", 100, "number of live connections to accumulate")
	out := flag.String("out", "memory-snapshots", "snapshot output directory")
	mutual := flag.Bool("mutual", false, "request client certificates")
	cpuprofile := flag.Bool("cpuprofile", false, "also write a cpu profile of the sweep")
	flag.Parse()

	if *mode != "pair" && *mode != "client" && *mode != "server" {
		return fmt.Errorf("unknown mode %q", *mode)
	}
	if *cpuprofile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*out)).Stop()
	}

	backend, err := tlsbench.LookupBackend(*backendName)
	if err != nil {
		return err
	}
	snap, err := tlsbench.NewPprofHeapSnapshotter(*out)
	if err != nil {
		return err
	}

	handshake := tlsbench.ServerAuth
	if *mutual {
		handshake = tlsbench.MutualAuth
	}

	log.WithFields(logrus.Fields{
		"backend": *backendName,
		"mode":    *mode,
		"count":   *count,
		"out":     *out,
	}).Info("starting memory sweep")

	// Configs are built once and shared by every pair, the way a server
	// under load would hold one config for all its connections. Their cost
	// lands in the baseline snapshot, not in the per-connection slope.
	clientCfg, err := backend.MakeConfig(tlsbench.ModeClient, tlsbench.CryptoConfig{}, handshake)
	if err != nil {
		return err
	}
	serverCfg, err := backend.MakeConfig(tlsbench.ModeServer, tlsbench.CryptoConfig{}, handshake)
	if err != nil {
		return err
	}

	// One warm-up pair touches every lazily initialized code path so the
	// baseline includes one-time library state.
	warmup, err := buildPair(backend, clientCfg, serverCfg)
	if err != nil {
		return err
	}
	if err := warmup.Handshake(); err != nil {
		warmup.Close()
		return err
	}
	warmup.Close()
	if err := snap.Snapshot("0"); err != nil {
		return err
	}

	// Only the measured side stays referenced; the discarded side is closed
	// and dropped so the pre-snapshot collection reclaims it.
	live := make([]tlsbench.Connection, 0, 2*(*count))
	defer func() {
		for _, conn := range live {
			conn.Close()
		}
	}()

	for i := 1; i <= *count; i++ {
		pair, err := buildPair(backend, clientCfg, serverCfg)
		if err != nil {
			return err
		}
		if err := pair.Handshake(); err != nil {
			pair.Close()
			return err
		}
		pair.ShrinkConnectionBuffers()
		pair.ShrinkConnectedBuffers()

		switch *mode {
		case "pair":
			live = append(live, pair.Client, pair.Server)
		case "client":
			pair.Server.Close()
			live = append(live, pair.Client)
		case "server":
			pair.Client.Close()
			live = append(live, pair.Server)
		}

		if err := snap.Snapshot(strconv.Itoa(i)); err != nil {
			return err
		}
	}

	log.WithField("snapshots", *count+1).Info("memory sweep complete")
	return nil
}

func buildPair(backend tlsbench.Backend, clientCfg, serverCfg tlsbench.Config) (*tlsbench.ConnPair, error) {
	buf := tlsbench.NewConnectedBuffer()
	server, err := backend.NewConnection(serverCfg, buf)
	if err != nil {
		return nil, err
	}
	client, err := backend.NewConnection(clientCfg, buf.Inverse())
	if err != nil {
		server.Close()
		return nil, err
	}
	return tlsbench.WrapConnPair(client, server), nil
}
