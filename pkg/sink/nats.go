package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/nats-io/nats.go"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
)

type NatsConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type publisher interface {
	Publish(subj string, data []byte) error
}

// NatsSink publishes each event on <subject>.<kind>, e.g. matching.trade.
type NatsSink struct {
	pub     publisher
	subject string
	logger  *zap.Logger

	mu  sync.Mutex
	seq uint64
	err error
}

// ConnectNATS dials the server, retrying with exponential backoff.
func ConnectNATS(ctx context.Context, cfg NatsConfig, logger *zap.Logger) (*nats.Conn, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	var nc *nats.Conn
	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(func() error {
		var err error
		nc, err = nats.Connect(url, nats.Name("matching-engine"))
		if err != nil {
			logger.Warn("connect nats", zap.String("url", url), zap.Error(err))
		}
		return err
	}, backoff.WithContext(boff, ctx))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

func NewNatsSink(pub publisher, subject string, logger *zap.Logger) *NatsSink {
	if subject == "" {
		subject = "matching"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NatsSink{pub: pub, subject: subject, logger: logger}
}

func (s *NatsSink) OnEvent(ev engine.Event) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	data, err := json.Marshal(NewRecord(seq, ev))
	if err == nil {
		err = s.pub.Publish(s.Subject(ev.Kind), data)
	}
	if err != nil {
		s.logger.Error("nats sink", zap.Uint64("seq", seq), zap.Error(err))
		s.mu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
	}
}

func (s *NatsSink) Subject(kind engine.EventKind) string {
	return s.subject + "." + strings.ToLower(kind.String())
}

func (s *NatsSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close drains the connection if the publisher owns one.
func (s *NatsSink) Close() error {
	if d, ok := s.pub.(interface{ Drain() error }); ok {
		return d.Drain()
	}
	return nil
}
