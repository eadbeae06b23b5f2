package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// Security — SASL/TLS для подключения к брокеру. Пустое значение означает PLAINTEXT.
type Security struct {
	SASLMechanism string // PLAIN | SCRAM-SHA-256 | SCRAM-SHA-512
	Username      string
	Password      string

	TLS                   bool
	TLSInsecureSkipVerify bool
	CACertPath            string
}

const dialTimeout = 10 * time.Second

func (s Security) mechanism() (sasl.Mechanism, error) {
	switch strings.ToUpper(strings.TrimSpace(s.SASLMechanism)) {
	case "":
		return nil, nil
	case "PLAIN":
		return plain.Mechanism{Username: s.Username, Password: s.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, s.Username, s.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, s.Username, s.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", s.SASLMechanism)
	}
}

func (s Security) tlsConfig() (*tls.Config, error) {
	if !s.TLS {
		return nil, nil
	}
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: s.TLSInsecureSkipVerify, //nolint:gosec // управляется конфигом
	}
	if s.CACertPath != "" {
		pem, err := os.ReadFile(s.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("parse CA cert %s", s.CACertPath)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// Dialer — для reader’ов (kafka.Reader принимает только Dialer).
func (s Security) Dialer() (*kafka.Dialer, error) {
	mech, err := s.mechanism()
	if err != nil {
		return nil, err
	}
	tlsCfg, err := s.tlsConfig()
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{
		Timeout:       dialTimeout,
		DualStack:     true,
		TLS:           tlsCfg,
		SASLMechanism: mech,
	}, nil
}

// Transport — для Writer и Client.
func (s Security) Transport() (*kafka.Transport, error) {
	mech, err := s.mechanism()
	if err != nil {
		return nil, err
	}
	tlsCfg, err := s.tlsConfig()
	if err != nil {
		return nil, err
	}
	return &kafka.Transport{
		DialTimeout: dialTimeout,
		TLS:         tlsCfg,
		SASL:        mech,
	}, nil
}
