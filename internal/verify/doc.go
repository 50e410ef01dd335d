// Package verify implements TLS peer identity verification: deciding
// whether the hostname a client intended to reach is asserted by the
// identity claims of the certificate the peer presented.
//
// The package follows the precedence rule used by contemporary TLS
// stacks: once a certificate carries subject-alternative-name DNS
// entries, the legacy subject common name is no longer authoritative
// and is never consulted, even if it would match. Only when the SAN
// DNS set is empty does matching fall back to the common name.
//
// # Verification
//
// The Verifier evaluates a completed TLS session against a hostname:
//
//	v := verify.NewVerifier(verify.WithVerifierLogger(logger))
//	ok := v.VerifyPeerCertMatchesHost(ctx, session, "a.bar.test")
//
// Sessions are abstracted behind the Session and CertificateReader
// interfaces so the matching core stays independent of any particular
// X.509 decoder and can be tested with synthetic claim sets. Adapters
// for crypto/tls connections and *x509.Certificate are provided.
//
// Verification is fail-closed: a missing peer certificate, malformed
// SAN data, or an empty claim set all collapse to a negative verdict.
package verify
