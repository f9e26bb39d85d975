package tls

import (
	"crypto/tls"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/acme/autocert"
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/util"
)

// TLSManager resolves the serving certificate from, in order: ACME
// (autocert), the configured cert/key files, or a self-signed development
// certificate.
type TLSManager struct {
	server   config.ServerConfig
	logger   *zap.Logger
	autoCert *autocert.Manager

	selfSignedOnce sync.Once
	selfSigned     *tls.Certificate
	selfSignedErr  error
}

func NewTLSManager(server config.ServerConfig, logger *zap.Logger) *TLSManager {
	m := &TLSManager{
		server: server,
		logger: logger.Named("tls"),
	}
	if server.EnableTLS && server.AutoCert {
		m.setupAutoCert()
	}
	return m
}

func (m *TLSManager) setupAutoCert() {
	if err := os.MkdirAll(m.server.AutoCertDir, 0o700); err != nil {
		m.logger.Warn("Could not create autocert directory", util.ErrorField(err))
		return
	}

	m.autoCert = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(m.server.Domain),
		Cache:      autocert.DirCache(m.server.AutoCertDir),
		Email:      m.server.Email,
	}

	m.logger.Info("AutoCert configured",
		util.String("domain", m.server.Domain),
		util.String("cache_dir", m.server.AutoCertDir),
	)
}

func (m *TLSManager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		if cert, err := m.autoCert.GetCertificate(hello); err == nil {
			return cert, nil
		}
	}

	if m.server.CertFile != "" && m.server.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(m.server.CertFile, m.server.KeyFile)
		if err == nil {
			return &cert, nil
		}
		m.logger.Warn("Failed to load certificate files", util.ErrorField(err))
	}

	return m.selfSignedCert()
}

// selfSignedCert is generated at most once per process.
func (m *TLSManager) selfSignedCert() (*tls.Certificate, error) {
	m.selfSignedOnce.Do(func() {
		hosts := []string{"localhost", "127.0.0.1", "::1"}
		if m.server.Domain != "" {
			hosts = append([]string{m.server.Domain}, hosts...)
		}
		cert, err := NewDevCertGenerator(m.server.AutoCertDir, m.logger).GenerateCert(hosts)
		if err != nil {
			m.selfSignedErr = fmt.Errorf("failed to generate self-signed certificate: %w", err)
			return
		}
		m.selfSigned = &cert
	})
	return m.selfSigned, m.selfSignedErr
}

func (m *TLSManager) GetTLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
		MinVersion:     tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}
}

func (m *TLSManager) GetAutocertManager() *autocert.Manager {
	return m.autoCert
}
