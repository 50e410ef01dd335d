package http

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veritls/veritls/internal/observability"
	"github.com/veritls/veritls/internal/verify"
)

// verifyRequest is the body of POST /v1/verify.
type verifyRequest struct {
	// CertificatePEM is the PEM-encoded certificate to check.
	CertificatePEM string `json:"certificatePem" binding:"required"`

	// Hostname is the target to verify against.
	Hostname string `json:"hostname" binding:"required"`
}

// verifyResponse is the body of a successful /v1/verify call.
type verifyResponse struct {
	Hostname string        `json:"hostname"`
	Result   verify.Result `json:"result"`
}

// probeRequest is the body of POST /v1/probe.
type probeRequest struct {
	// Address is the endpoint to dial, host or host:port.
	Address string `json:"address" binding:"required"`

	// Hostname is the target to verify against. Defaults to the host
	// part of Address.
	Hostname string `json:"hostname,omitempty"`
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleVerify verifies a PEM certificate against a hostname without
// any network activity.
func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cert, err := parsePEMCertificate([]byte(req.CertificatePEM))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := s.normalize(req.Hostname)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hostname"})
		return
	}

	result := s.verifier.VerifyDetailed(
		c.Request.Context(),
		verify.SessionFromCertificate(cert),
		target,
	)

	c.JSON(http.StatusOK, verifyResponse{
		Hostname: target,
		Result:   result,
	})
}

// handleProbe dials a live endpoint and verifies the certificate it
// presents.
func (s *Server) handleProbe(c *gin.Context) {
	var req probeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	host := req.Hostname
	if host == "" {
		host = req.Address
	}

	result, err := s.prober.Probe(c.Request.Context(), req.Address, host)
	if err != nil {
		s.logger.WithContext(c.Request.Context()).Warn("probe failed",
			observability.String("address", req.Address),
			observability.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// parsePEMCertificate decodes the first CERTIFICATE block of pemData.
func parsePEMCertificate(pemData []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemData)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("no PEM certificate block found")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.New("failed to parse certificate")
	}

	return cert, nil
}
