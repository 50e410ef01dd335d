package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader is a synthetic CertificateReader for injecting claim
// sets without encoding certificates.
type fakeReader struct {
	dnsNames   []string
	commonName string
	cnRead     bool
}

func (r *fakeReader) SubjectAltNameDNSEntries() []string {
	return r.dnsNames
}

func (r *fakeReader) SubjectCommonName() string {
	r.cnRead = true
	return r.commonName
}

// fakeSession presents a fixed reader, or none at all.
type fakeSession struct {
	reader CertificateReader
}

func (s *fakeSession) PeerCertificate() CertificateReader {
	return s.reader
}

// newClaimsSession builds a session over a synthetic claim set.
func newClaimsSession(dnsNames []string, commonName string) Session {
	return &fakeSession{reader: &fakeReader{dnsNames: dnsNames, commonName: commonName}}
}

func TestExtractIdentityClaims(t *testing.T) {
	t.Parallel()

	t.Run("nil session", func(t *testing.T) {
		t.Parallel()

		_, err := ExtractIdentityClaims(nil)
		require.ErrorIs(t, err, ErrNoPeerCertificate)
	})

	t.Run("no peer certificate", func(t *testing.T) {
		t.Parallel()

		_, err := ExtractIdentityClaims(&fakeSession{})
		require.ErrorIs(t, err, ErrNoPeerCertificate)
	})

	t.Run("SAN entries preserve encoding order", func(t *testing.T) {
		t.Parallel()

		claims, err := ExtractIdentityClaims(newClaimsSession(
			[]string{"foo.test", "*.bar.test", "test.webrtc.org"}, "*.webrtc.org",
		))
		require.NoError(t, err)

		assert.Equal(t, []string{"foo.test", "*.bar.test", "test.webrtc.org"}, claims.DNSNames)
		assert.True(t, claims.HasSAN())
	})

	t.Run("common name not read when SAN entries exist", func(t *testing.T) {
		t.Parallel()

		reader := &fakeReader{
			dnsNames:   []string{"foo.test"},
			commonName: "*.webrtc.org",
		}

		claims, err := ExtractIdentityClaims(&fakeSession{reader: reader})
		require.NoError(t, err)

		assert.Empty(t, claims.CommonName)
		assert.False(t, reader.cnRead)
	})

	t.Run("common name fallback when SAN set is empty", func(t *testing.T) {
		t.Parallel()

		claims, err := ExtractIdentityClaims(newClaimsSession(nil, "*.webrtc.org"))
		require.NoError(t, err)

		assert.False(t, claims.HasSAN())
		assert.Equal(t, "*.webrtc.org", claims.CommonName)
	})

	t.Run("no claims at all", func(t *testing.T) {
		t.Parallel()

		claims, err := ExtractIdentityClaims(newClaimsSession(nil, ""))
		require.NoError(t, err)

		assert.True(t, claims.Empty())
	})
}
