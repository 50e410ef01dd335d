package probe

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritls/veritls/internal/hostname"
	"github.com/veritls/veritls/internal/verify"
)

// startTLSServer starts a local TLS listener presenting a self-signed
// certificate with the given identity claims. It completes handshakes
// and closes connections.
func startTLSServer(t *testing.T, commonName string, dnsNames []string) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		DNSNames:     dnsNames,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{der},
			PrivateKey:  key,
		}},
		MinVersion: tls.VersionTLS12,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer func() { _ = c.Close() }()
				_ = c.(*tls.Conn).Handshake()
			}(conn)
		}
	}()

	return ln.Addr().String()
}

func TestProbe(t *testing.T) {
	t.Parallel()

	addr := startTLSServer(t, "*.webrtc.org", []string{"localhost", "*.bar.test"})

	prober := NewProber(WithTimeout(5 * time.Second))

	t.Run("verified endpoint", func(t *testing.T) {
		t.Parallel()

		result, err := prober.Probe(context.Background(), addr, "localhost")
		require.NoError(t, err)

		assert.Equal(t, addr, result.Address)
		assert.Equal(t, "localhost", result.Hostname)
		assert.True(t, result.Verification.Verified)
		assert.Equal(t, verify.SourceSAN, result.Verification.Source)
		assert.Equal(t, "localhost", result.Verification.Pattern)
		assert.Equal(t, "*.webrtc.org", result.SubjectCommonName)
		assert.Equal(t, []string{"localhost", "*.bar.test"}, result.DNSNames)
		assert.NotEmpty(t, result.TLSVersion)
	})

	t.Run("wildcard entry matches", func(t *testing.T) {
		t.Parallel()

		result, err := prober.Probe(context.Background(), addr, "a.bar.test")
		require.NoError(t, err)

		assert.True(t, result.Verification.Verified)
		assert.Equal(t, "*.bar.test", result.Verification.Pattern)
	})

	t.Run("hostname mismatch is a verdict, not an error", func(t *testing.T) {
		t.Parallel()

		result, err := prober.Probe(context.Background(), addr, "other.test")
		require.NoError(t, err)

		assert.False(t, result.Verification.Verified)
		assert.Equal(t, verify.ReasonNoMatch, result.Verification.Reason)
	})

	t.Run("common name ignored while SAN entries exist", func(t *testing.T) {
		t.Parallel()

		result, err := prober.Probe(context.Background(), addr, "www.webrtc.org")
		require.NoError(t, err)

		assert.False(t, result.Verification.Verified)
	})
}

func TestProbe_Errors(t *testing.T) {
	t.Parallel()

	prober := NewProber(WithTimeout(time.Second))

	t.Run("invalid hostname", func(t *testing.T) {
		t.Parallel()

		_, err := prober.Probe(context.Background(), "127.0.0.1:1", "")
		require.ErrorIs(t, err, hostname.ErrEmptyHostname)
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()

		// Reserve a port and close it so nothing is listening there.
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		_, err = prober.Probe(context.Background(), addr, "localhost")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tls dial")
	})

	t.Run("not a tls endpoint", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		t.Cleanup(func() { _ = ln.Close() })

		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				// Plain-text response breaks the TLS handshake.
				_, _ = conn.Write([]byte("HTTP/1.0 400 Bad Request\r\n\r\n"))
				_ = conn.Close()
			}
		}()

		_, err = prober.Probe(context.Background(), ln.Addr().String(), "localhost")
		require.Error(t, err)
	})
}
