package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig holds PEM paths for serving RPC over TLS. ClientCA is optional;
// when set, callers (game servers, the backend) must present a certificate
// signed by it.
type TLSConfig struct {
	Cert     string `json:"cert" yaml:"cert"`
	Key      string `json:"key" yaml:"key"`
	ClientCA string `json:"client_ca,omitempty" yaml:"client_ca,omitempty"`
}

// LoadTLSConfig builds a *tls.Config from the PEM paths in cfg.
// If cfg is nil or the certificate paths are empty it returns (nil, nil),
// meaning the caller should serve plain HTTP.
func LoadTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil || (cfg.Cert == "" && cfg.Key == "") {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("load rpc cert/key: %w", err)
	}
	out := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if cfg.ClientCA == "" {
		return out, nil
	}

	caPEM, err := os.ReadFile(cfg.ClientCA)
	if err != nil {
		return nil, fmt.Errorf("read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("parse client CA %s: no certificates", cfg.ClientCA)
	}
	out.ClientCAs = pool
	out.ClientAuth = tls.RequireAndVerifyClientCert
	return out, nil
}
