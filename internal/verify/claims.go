package verify

import (
	"errors"
)

// Common errors for peer identity extraction.
var (
	// ErrNoPeerCertificate indicates that the handshake did not yield a
	// peer certificate. This is a terminal condition: verification must
	// fail before any pattern comparison takes place.
	ErrNoPeerCertificate = errors.New("no peer certificate presented")
)

// CertificateReader is the minimal capability surface this package
// requires from the X.509 layer. It exposes the already-decoded name
// lists of a single certificate; chain validation, expiry, and
// revocation are deliberately outside this surface.
type CertificateReader interface {
	// SubjectAltNameDNSEntries returns the DNS-type entries of the
	// subject-alternative-name extension in encoding order. Entries of
	// other types (IP, email, URI) are not reported. Malformed or
	// undecodable extension data must be reported as no entries.
	SubjectAltNameDNSEntries() []string

	// SubjectCommonName returns the common-name attribute of the
	// subject distinguished name, or the empty string if absent.
	SubjectCommonName() string
}

// Session is a handle into a completed TLS session. It is owned by the
// TLS/handshake layer; this package only reads from it.
type Session interface {
	// PeerCertificate returns a reader over the certificate the remote
	// party presented during the handshake, or nil if none was
	// presented (for example, a server that sent no certificate or a
	// client-side session without peer authentication).
	PeerCertificate() CertificateReader
}

// IdentityClaims is the set of hostname patterns a certificate asserts.
// The SAN DNS names and the legacy common name are mutually exclusive:
// CommonName is populated only when DNSNames is empty.
type IdentityClaims struct {
	// DNSNames are the SAN DNS-type entries in encoding order.
	DNSNames []string

	// CommonName is the legacy subject common name, consulted only
	// when DNSNames is empty. Empty if the attribute is absent.
	CommonName string
}

// HasSAN reports whether the claims carry any SAN DNS entries.
func (c IdentityClaims) HasSAN() bool {
	return len(c.DNSNames) > 0
}

// Empty reports whether the claims carry no usable pattern at all.
func (c IdentityClaims) Empty() bool {
	return len(c.DNSNames) == 0 && c.CommonName == ""
}

// ExtractIdentityClaims derives the identity claims from a completed
// session. It returns ErrNoPeerCertificate when the session has no
// peer certificate. The common name is read only when the SAN DNS set
// turns out empty, so the two claim sources are never merged.
func ExtractIdentityClaims(session Session) (IdentityClaims, error) {
	if session == nil {
		return IdentityClaims{}, ErrNoPeerCertificate
	}

	cert := session.PeerCertificate()
	if cert == nil {
		return IdentityClaims{}, ErrNoPeerCertificate
	}

	claims := IdentityClaims{DNSNames: cert.SubjectAltNameDNSEntries()}
	if len(claims.DNSNames) == 0 {
		claims.DNSNames = nil
		claims.CommonName = cert.SubjectCommonName()
	}

	return claims, nil
}
