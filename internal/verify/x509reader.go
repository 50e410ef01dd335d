package verify

import (
	"crypto/tls"
	"crypto/x509"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// oidExtensionSubjectAltName is the OID of the SAN extension (2.5.29.17).
var oidExtensionSubjectAltName = []int{2, 5, 29, 17}

// dNSName is the context-specific GeneralName tag for DNS entries.
const dNSNameTag = 2

// certReader adapts *x509.Certificate to the CertificateReader
// capability surface.
type certReader struct {
	cert *x509.Certificate
}

// NewCertificateReader returns a CertificateReader over an
// already-parsed certificate. A nil certificate yields a nil reader.
func NewCertificateReader(cert *x509.Certificate) CertificateReader {
	if cert == nil {
		return nil
	}
	return &certReader{cert: cert}
}

// SubjectAltNameDNSEntries returns the certificate's SAN DNS entries in
// encoding order. When the standard decoder left DNSNames empty but a
// SAN extension is present, the raw extension bytes are re-parsed
// tolerantly; anything undecodable counts as no entries rather than an
// error, so malformed data fails toward rejection.
func (r *certReader) SubjectAltNameDNSEntries() []string {
	if len(r.cert.DNSNames) > 0 {
		return r.cert.DNSNames
	}

	for _, ext := range r.cert.Extensions {
		if ext.Id.Equal(oidExtensionSubjectAltName) {
			return parseSANDNSEntries(ext.Value)
		}
	}
	return nil
}

// SubjectCommonName returns the subject common-name attribute.
func (r *certReader) SubjectCommonName() string {
	return r.cert.Subject.CommonName
}

// parseSANDNSEntries extracts the dNSName GeneralNames from a raw SAN
// extension value. Any structural defect discards the whole extension:
// a half-parsed SAN set must never widen the accepted identity space.
func parseSANDNSEntries(der []byte) []string {
	input := cryptobyte.String(der)

	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) || !input.Empty() {
		return nil
	}

	var names []string
	for !seq.Empty() {
		var value cryptobyte.String
		var tag cryptobyte_asn1.Tag
		if !seq.ReadAnyASN1(&value, &tag) {
			return nil
		}
		if tag == cryptobyte_asn1.Tag(dNSNameTag).ContextSpecific() {
			names = append(names, string(value))
		}
	}
	return names
}

// tlsSession adapts crypto/tls connection state to the Session
// interface. Only the leaf certificate carries the peer's identity.
type tlsSession struct {
	state *tls.ConnectionState
}

// SessionFromConnectionState returns a Session over a completed
// crypto/tls handshake. The connection state is read, never mutated.
func SessionFromConnectionState(state *tls.ConnectionState) Session {
	return &tlsSession{state: state}
}

// SessionFromCertificate returns a Session that presents a single
// already-parsed certificate. Useful for offline verification of
// certificates loaded from PEM files.
func SessionFromCertificate(cert *x509.Certificate) Session {
	return &staticSession{reader: NewCertificateReader(cert)}
}

// PeerCertificate returns a reader over the leaf peer certificate, or
// nil when the handshake did not authenticate a peer.
func (s *tlsSession) PeerCertificate() CertificateReader {
	if s.state == nil || len(s.state.PeerCertificates) == 0 {
		return nil
	}
	return NewCertificateReader(s.state.PeerCertificates[0])
}

// staticSession presents a fixed certificate reader.
type staticSession struct {
	reader CertificateReader
}

func (s *staticSession) PeerCertificate() CertificateReader {
	return s.reader
}
