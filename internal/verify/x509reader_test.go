package verify

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateCert generates a self-signed certificate with the given
// common name and SAN DNS entries.
func generateCert(t *testing.T, commonName string, dnsNames []string) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			CommonName: commonName,
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
		KeyUsage:  x509.KeyUsageDigitalSignature,
		DNSNames:  dnsNames,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return cert
}

func TestCertificateReader(t *testing.T) {
	t.Parallel()

	t.Run("SAN DNS entries in encoding order", func(t *testing.T) {
		t.Parallel()

		cert := generateCert(t, "*.webrtc.org", []string{"foo.test", "*.bar.test", "test.webrtc.org"})
		reader := NewCertificateReader(cert)

		assert.Equal(t, []string{"foo.test", "*.bar.test", "test.webrtc.org"}, reader.SubjectAltNameDNSEntries())
		assert.Equal(t, "*.webrtc.org", reader.SubjectCommonName())
	})

	t.Run("certificate without SAN extension", func(t *testing.T) {
		t.Parallel()

		cert := generateCert(t, "*.webrtc.org", nil)
		reader := NewCertificateReader(cert)

		assert.Empty(t, reader.SubjectAltNameDNSEntries())
		assert.Equal(t, "*.webrtc.org", reader.SubjectCommonName())
	})

	t.Run("nil certificate yields nil reader", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, NewCertificateReader(nil))
	})

	t.Run("malformed SAN extension yields no entries", func(t *testing.T) {
		t.Parallel()

		cert := &x509.Certificate{
			Subject: pkix.Name{CommonName: "fallback.test"},
			Extensions: []pkix.Extension{
				{
					Id:    oidExtensionSubjectAltName,
					Value: []byte{0xde, 0xad, 0xbe, 0xef},
				},
			},
		}
		reader := NewCertificateReader(cert)

		assert.Empty(t, reader.SubjectAltNameDNSEntries())
		assert.Equal(t, "fallback.test", reader.SubjectCommonName())
	})

	t.Run("raw SAN extension parsed when decoder left DNSNames empty", func(t *testing.T) {
		t.Parallel()

		// SEQUENCE { dNSName "foo.test", iPAddress 1.2.3.4 }
		raw := []byte{
			0x30, 0x10,
			0x82, 0x08, 'f', 'o', 'o', '.', 't', 'e', 's', 't',
			0x87, 0x04, 0x01, 0x02, 0x03, 0x04,
		}

		cert := &x509.Certificate{
			Extensions: []pkix.Extension{
				{Id: oidExtensionSubjectAltName, Value: raw},
			},
		}
		reader := NewCertificateReader(cert)

		assert.Equal(t, []string{"foo.test"}, reader.SubjectAltNameDNSEntries())
	})
}

func TestParseSANDNSEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		der  []byte
		want []string
	}{
		{
			name: "single dns entry",
			der: []byte{
				0x30, 0x0a,
				0x82, 0x08, 'f', 'o', 'o', '.', 't', 'e', 's', 't',
			},
			want: []string{"foo.test"},
		},
		{
			name: "non-dns entries are skipped",
			der: []byte{
				0x30, 0x06,
				0x87, 0x04, 0x01, 0x02, 0x03, 0x04,
			},
			want: nil,
		},
		{
			name: "not a sequence",
			der:  []byte{0x04, 0x02, 0x61, 0x62},
			want: nil,
		},
		{
			name: "truncated entry discards the whole extension",
			der: []byte{
				0x30, 0x0a,
				0x82, 0x20, 'f', 'o', 'o',
			},
			want: nil,
		},
		{
			name: "trailing garbage after sequence",
			der: []byte{
				0x30, 0x0a,
				0x82, 0x08, 'f', 'o', 'o', '.', 't', 'e', 's', 't',
				0xff,
			},
			want: nil,
		},
		{
			name: "empty input",
			der:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, parseSANDNSEntries(tt.der))
		})
	}
}

func TestSessionFromConnectionState(t *testing.T) {
	t.Parallel()

	t.Run("nil state", func(t *testing.T) {
		t.Parallel()

		session := SessionFromConnectionState(nil)
		assert.Nil(t, session.PeerCertificate())
	})

	t.Run("no peer certificates", func(t *testing.T) {
		t.Parallel()

		session := SessionFromConnectionState(&tls.ConnectionState{})
		assert.Nil(t, session.PeerCertificate())
	})

	t.Run("leaf certificate exposed", func(t *testing.T) {
		t.Parallel()

		leaf := generateCert(t, "", []string{"foo.test"})
		intermediate := generateCert(t, "intermediate", []string{"other.test"})

		session := SessionFromConnectionState(&tls.ConnectionState{
			PeerCertificates: []*x509.Certificate{leaf, intermediate},
		})

		reader := session.PeerCertificate()
		require.NotNil(t, reader)
		assert.Equal(t, []string{"foo.test"}, reader.SubjectAltNameDNSEntries())
	})
}

func TestSessionFromCertificate(t *testing.T) {
	t.Parallel()

	cert := generateCert(t, "*.webrtc.org", nil)
	session := SessionFromCertificate(cert)

	reader := session.PeerCertificate()
	require.NotNil(t, reader)
	assert.Equal(t, "*.webrtc.org", reader.SubjectCommonName())
}
