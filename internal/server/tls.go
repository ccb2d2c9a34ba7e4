// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"codeberg.org/ipo-allotment/server/internal/config"
)

// TLSMode represents the resolved TLS mode.
type TLSMode string

const (
	TLSModeOff    TLSMode = "off"
	TLSModeManual TLSMode = "manual"
)

// TLSResult contains the resolved TLS configuration.
type TLSResult struct {
	TLSConfig *tls.Config // nil in off mode
	Mode      TLSMode
}

// SetupTLS configures TLS based on the configuration.
func SetupTLS(cfg *config.Config) (*TLSResult, error) {
	switch mode := TLSMode(cfg.TLS.Mode); mode {
	case TLSModeOff, "":
		slog.Info("tls_mode", "mode", TLSModeOff)
		return &TLSResult{Mode: TLSModeOff}, nil

	case TLSModeManual:
		slog.Info("tls_mode",
			"mode", mode,
			"cert", cfg.TLS.CertFile,
			"key", cfg.TLS.KeyFile,
		)
		return setupManual(cfg)

	default:
		return nil, fmt.Errorf("unknown TLS mode: %s", mode)
	}
}

// setupManual loads the certificate pair from disk.
func setupManual(cfg *config.Config) (*TLSResult, error) {
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	return &TLSResult{
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
		Mode: TLSModeManual,
	}, nil
}
