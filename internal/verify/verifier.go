package verify

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/veritls/veritls/internal/observability"
)

// Claim source labels reported in Result and metrics.
const (
	// SourceSAN marks a verdict derived from SAN DNS entries.
	SourceSAN = "san"

	// SourceCommonName marks a verdict derived from the legacy common
	// name fallback.
	SourceCommonName = "cn"
)

// Rejection reason labels reported in Result and metrics.
const (
	// ReasonNoCertificate: the handshake yielded no peer certificate.
	ReasonNoCertificate = "no_certificate"

	// ReasonNoClaims: the certificate asserts no usable pattern at all.
	ReasonNoClaims = "no_identity_claims"

	// ReasonNoMatch: patterns were present but none matched.
	ReasonNoMatch = "no_match"
)

// Result carries the verdict of a verification together with optional
// diagnostic detail. Callers that only need the boolean acceptance
// signal should use VerifyPeerCertMatchesHost; the extra fields exist
// for logging, metrics, and the diagnostic API and carry no security
// meaning of their own.
type Result struct {
	// Verified is the single externally meaningful outcome.
	Verified bool `json:"verified"`

	// Source is the claim source that produced a positive verdict
	// (SourceSAN or SourceCommonName). Empty on rejection.
	Source string `json:"source,omitempty"`

	// Pattern is the certificate pattern that matched. Empty on
	// rejection.
	Pattern string `json:"pattern,omitempty"`

	// Reason labels why verification was rejected. Empty on success.
	Reason string `json:"reason,omitempty"`
}

// Verifier decides whether a completed TLS session authenticates a
// hostname. Implementations are safe for concurrent use: verification
// is a pure function of the session's certificate data and the
// hostname.
type Verifier interface {
	// VerifyPeerCertMatchesHost returns true only if the peer
	// certificate's identity claims cover hostname. Any missing,
	// malformed, or non-matching input yields false.
	VerifyPeerCertMatchesHost(ctx context.Context, session Session, hostname string) bool

	// VerifyDetailed performs the same check and reports diagnostic
	// detail alongside the verdict.
	VerifyDetailed(ctx context.Context, session Session, hostname string) Result
}

// verifier implements the Verifier interface.
type verifier struct {
	logger           observability.Logger
	metrics          *Metrics
	legacyCNFallback bool
}

// VerifierOption is a functional option for the verifier.
type VerifierOption func(*verifier)

// WithVerifierLogger sets the logger for the verifier.
func WithVerifierLogger(logger observability.Logger) VerifierOption {
	return func(v *verifier) {
		v.logger = logger
	}
}

// WithVerifierMetrics sets the metrics for the verifier.
func WithVerifierMetrics(metrics *Metrics) VerifierOption {
	return func(v *verifier) {
		v.metrics = metrics
	}
}

// WithLegacyCommonNameFallback controls whether the subject common
// name is consulted when the certificate has no SAN DNS entries.
// Enabled by default; disabling it rejects SAN-less certificates
// outright.
func WithLegacyCommonNameFallback(enabled bool) VerifierOption {
	return func(v *verifier) {
		v.legacyCNFallback = enabled
	}
}

// NewVerifier creates a new hostname verifier. Without options it logs
// nowhere and records no metrics.
func NewVerifier(opts ...VerifierOption) Verifier {
	v := &verifier{
		logger:           observability.NopLogger(),
		legacyCNFallback: true,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// VerifyPeerCertMatchesHost returns the boolean acceptance signal.
func (v *verifier) VerifyPeerCertMatchesHost(ctx context.Context, session Session, hostname string) bool {
	return v.VerifyDetailed(ctx, session, hostname).Verified
}

// VerifyDetailed applies the SAN-first-else-CN precedence policy and
// aggregates matcher results into one verdict.
func (v *verifier) VerifyDetailed(ctx context.Context, session Session, hostname string) Result {
	start := time.Now()

	claims, err := ExtractIdentityClaims(session)
	if err != nil {
		return v.reject(ctx, hostname, ReasonNoCertificate, start)
	}

	if claims.HasSAN() {
		// Once SAN identities are asserted, the common name is no
		// longer authoritative, matching or not.
		for _, pattern := range claims.DNSNames {
			if MatchHostname(pattern, hostname) {
				return v.accept(ctx, hostname, SourceSAN, pattern, start)
			}
		}
		return v.reject(ctx, hostname, ReasonNoMatch, start)
	}

	if v.legacyCNFallback && claims.CommonName != "" {
		if MatchHostname(claims.CommonName, hostname) {
			return v.accept(ctx, hostname, SourceCommonName, claims.CommonName, start)
		}
		return v.reject(ctx, hostname, ReasonNoMatch, start)
	}

	return v.reject(ctx, hostname, ReasonNoClaims, start)
}

// accept finalizes a positive verdict.
func (v *verifier) accept(ctx context.Context, hostname, source, pattern string, start time.Time) Result {
	if v.metrics != nil {
		v.metrics.RecordVerification("verified", source, time.Since(start))
		v.metrics.RecordClaimSource(source)
	}

	v.logger.WithContext(ctx).Debug("peer hostname verified",
		observability.String("hostname", hostname),
		observability.String("source", source),
		observability.String("pattern", pattern),
	)

	return Result{Verified: true, Source: source, Pattern: pattern}
}

// reject finalizes a negative verdict. All rejection causes collapse
// to the same external outcome.
func (v *verifier) reject(ctx context.Context, hostname, reason string, start time.Time) Result {
	if v.metrics != nil {
		v.metrics.RecordVerification("rejected", reason, time.Since(start))
	}

	v.logger.WithContext(ctx).Debug("peer hostname rejected",
		observability.String("hostname", hostname),
		observability.String("reason", reason),
	)

	return Result{Verified: false, Reason: reason}
}

// VerifyConnection verifies a completed crypto/tls handshake against
// hostname using a default verifier. Convenience for callers that do
// not need logging or metrics.
func VerifyConnection(ctx context.Context, state *tls.ConnectionState, hostname string) bool {
	return defaultVerifier.VerifyPeerCertMatchesHost(ctx, SessionFromConnectionState(state), hostname)
}

var defaultVerifier = NewVerifier()

// Ensure verifier implements Verifier.
var _ Verifier = (*verifier)(nil)
