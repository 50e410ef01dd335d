package main

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/veritls/veritls/internal/config"
	"github.com/veritls/veritls/internal/hostname"
	"github.com/veritls/veritls/internal/observability"
	"github.com/veritls/veritls/internal/probe"
	"github.com/veritls/veritls/internal/verify"
)

// runCheck verifies a PEM certificate file against a hostname without
// touching the network. Exit code 0 means verified, 1 means rejected.
func runCheck(flags cliFlags, cfg *config.Config, logger observability.Logger) int {
	if flags.certPath == "" || flags.host == "" {
		fmt.Fprintln(os.Stderr, "check mode requires -cert and -host")
		return 2
	}

	cert, err := loadCertificate(flags.certPath)
	if err != nil {
		logger.Error("failed to load certificate",
			observability.String("path", flags.certPath),
			observability.Error(err),
		)
		return 2
	}

	normalize := hostname.ForPolicy(cfg.Verification.IDNA)
	target, err := normalize(flags.host)
	if err != nil {
		logger.Error("invalid hostname", observability.Error(err))
		return 2
	}

	verifier := newVerifier(cfg, logger)
	result := verifier.VerifyDetailed(context.Background(), verify.SessionFromCertificate(cert), target)

	printJSON(map[string]any{
		"hostname": target,
		"result":   result,
	})

	if !result.Verified {
		return 1
	}
	return 0
}

// runProbe dials a live endpoint and verifies the certificate it
// presents. Exit code 0 means verified, 1 means rejected or
// unreachable.
func runProbe(flags cliFlags, cfg *config.Config, logger observability.Logger) int {
	if flags.address == "" {
		fmt.Fprintln(os.Stderr, "probe mode requires -addr")
		return 2
	}

	host := flags.host
	if host == "" {
		host = flags.address
	}

	prober := probe.NewProber(
		probe.WithProberLogger(logger),
		probe.WithVerifier(newVerifier(cfg, logger)),
		probe.WithNormalizer(hostname.ForPolicy(cfg.Verification.IDNA)),
		probe.WithTimeout(cfg.Probe.Timeout.Duration()),
	)

	result, err := prober.Probe(context.Background(), flags.address, host)
	if err != nil {
		logger.Error("probe failed", observability.Error(err))
		return 1
	}

	printJSON(result)

	if !result.Verification.Verified {
		return 1
	}
	return 0
}

// newVerifier builds a verifier from the configured policy.
func newVerifier(cfg *config.Config, logger observability.Logger) verify.Verifier {
	return verify.NewVerifier(
		verify.WithVerifierLogger(logger),
		verify.WithLegacyCommonNameFallback(cfg.Verification.LegacyCommonNameEnabled()),
	)
}

// loadCertificate reads and parses the first PEM certificate in path.
func loadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no PEM certificate block in %s", path)
	}

	return x509.ParseCertificate(block.Bytes)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
