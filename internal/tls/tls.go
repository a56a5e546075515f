// Package tls loads or generates the self-signed certificate used by the
// HTTP server when TLS is enabled.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	certValidity = 30 * 24 * time.Hour
	renewBefore  = 7 * 24 * time.Hour
	tlsFileMode  = 0o600
)

var nowFn = time.Now

// LoadOrGenerateConfig returns a server config backed by certFile and
// keyFile. A missing, unreadable or soon expiring pair is regenerated.
func LoadOrGenerateConfig(certFile, keyFile string, logger *zap.Logger) (*tls.Config, error) {
	cert, err := loadCertificate(certFile, keyFile)
	switch {
	case err != nil:
		logger.Info("generating new TLS certificate", zap.String("reason", err.Error()))
	case nowFn().Add(renewBefore).After(cert.Leaf.NotAfter):
		logger.Info("TLS certificate expires soon, generating new certificate", zap.Time("notAfter", cert.Leaf.NotAfter))
	default:
		logger.Debug("using existing TLS certificate", zap.String("certFile", certFile))
		return serverConfig(cert), nil
	}

	cert, err = generateCertificate(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return serverConfig(cert), nil
}

// LoadOrGenerateConfigFromDir uses cert.pem and key.pem inside dir.
func LoadOrGenerateConfigFromDir(dir string, logger *zap.Logger) (*tls.Config, error) {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return nil, errors.Errorf("tls path is not a directory: %s", dir)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.WithStack(err)
	}
	return LoadOrGenerateConfig(filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem"), logger)
}

func serverConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

func loadCertificate(certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return cert, errors.WithStack(err)
	}
	if len(cert.Certificate) == 0 {
		return cert, errors.New("no certificate in file")
	}
	if cert.Leaf == nil {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return cert, errors.Wrap(err, "failed to parse certificate")
		}
		cert.Leaf = leaf
	}
	return cert, nil
}

func generateCertificate(certFile, keyFile string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, errors.WithStack(err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, errors.WithStack(err)
	}

	now := nowFn()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "diagrammer"},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:              []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "failed to create certificate")
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, errors.WithStack(err)
	}

	for _, dir := range []string{filepath.Dir(certFile), filepath.Dir(keyFile)} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return tls.Certificate{}, errors.WithStack(err)
		}
	}
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), tlsFileMode); err != nil {
		return tls.Certificate{}, errors.WithStack(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), tlsFileMode); err != nil {
		return tls.Certificate{}, errors.WithStack(err)
	}

	return loadCertificate(certFile, keyFile)
}

// LoadClientConfig trusts the self-signed certificate in certFile.
func LoadClientConfig(certFile string) (*tls.Config, error) {
	data, err := os.ReadFile(certFile)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, errors.New("failed to add certificate to pool")
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
