// Package probe dials live TLS endpoints and checks the presented
// certificate's identity claims against an intended hostname.
//
// The prober deliberately skips chain-of-trust validation: its single
// concern is whether the peer's certificate asserts the hostname, so
// it completes the handshake unconditionally and then runs the
// verify package's matching core over the captured session state.
package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/veritls/veritls/internal/hostname"
	"github.com/veritls/veritls/internal/observability"
	"github.com/veritls/veritls/internal/verify"
)

// DefaultTimeout bounds dial plus handshake when no timeout is set.
const DefaultTimeout = 10 * time.Second

// defaultPort is appended to addresses given without a port.
const defaultPort = "443"

// Result describes the outcome of a single probe.
type Result struct {
	// Address is the endpoint that was dialed.
	Address string `json:"address"`

	// Hostname is the normalized target the certificate was checked
	// against.
	Hostname string `json:"hostname"`

	// Verification is the identity verdict for the presented
	// certificate.
	Verification verify.Result `json:"verification"`

	// SubjectCommonName and DNSNames summarize the leaf certificate's
	// identity claims for diagnostics.
	SubjectCommonName string   `json:"subjectCommonName,omitempty"`
	DNSNames          []string `json:"dnsNames,omitempty"`

	// TLSVersion is the negotiated protocol version name.
	TLSVersion string `json:"tlsVersion,omitempty"`
}

// Prober dials TLS endpoints and verifies presented identities.
type Prober struct {
	timeout   time.Duration
	logger    observability.Logger
	verifier  verify.Verifier
	normalize hostname.NormalizeFunc
}

// ProberOption is a functional option for the prober.
type ProberOption func(*Prober)

// WithProberLogger sets the logger for the prober.
func WithProberLogger(logger observability.Logger) ProberOption {
	return func(p *Prober) {
		p.logger = logger
	}
}

// WithTimeout sets the dial plus handshake timeout.
func WithTimeout(timeout time.Duration) ProberOption {
	return func(p *Prober) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithVerifier sets the verifier used for the identity check.
func WithVerifier(verifier verify.Verifier) ProberOption {
	return func(p *Prober) {
		p.verifier = verifier
	}
}

// WithNormalizer sets the hostname normalization policy.
func WithNormalizer(normalize hostname.NormalizeFunc) ProberOption {
	return func(p *Prober) {
		p.normalize = normalize
	}
}

// NewProber creates a new prober.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		timeout:   DefaultTimeout,
		logger:    observability.NopLogger(),
		verifier:  verify.NewVerifier(),
		normalize: hostname.Normalize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Probe dials address, completes a TLS handshake, and verifies the
// presented certificate against host. A failed identity check is a
// normal Result, not an error; errors report connectivity or
// handshake failures only.
func (p *Prober) Probe(ctx context.Context, address, host string) (*Result, error) {
	target, err := p.normalize(host)
	if err != nil {
		return nil, fmt.Errorf("invalid hostname %q: %w", host, err)
	}

	if !strings.Contains(address, ":") {
		address = net.JoinHostPort(address, defaultPort)
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: p.timeout},
		Config: &tls.Config{
			// The prober's whole purpose is to run its own identity
			// check after the handshake; chain trust is out of scope.
			InsecureSkipVerify: true, //nolint:gosec
			ServerName:         target,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("tls dial %s failed: %w", address, err)
	}
	defer func() { _ = conn.Close() }()

	state := conn.(*tls.Conn).ConnectionState()
	result := &Result{
		Address:      address,
		Hostname:     target,
		Verification: p.verifier.VerifyDetailed(ctx, verify.SessionFromConnectionState(&state), target),
		TLSVersion:   tls.VersionName(state.Version),
	}

	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		result.SubjectCommonName = leaf.Subject.CommonName
		result.DNSNames = leaf.DNSNames
	}

	p.logger.WithContext(ctx).Info("probe completed",
		observability.String("address", address),
		observability.String("hostname", target),
		observability.Bool("verified", result.Verification.Verified),
	)

	return result, nil
}
