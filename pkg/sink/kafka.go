package sink

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/segmentio/encoding/json"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchSize    int           `yaml:"batch_size"`
	BatchBytes   int64         `yaml:"batch_bytes"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	// Sync makes every event wait for the broker ack. The batch is then a
	// single message, otherwise each write would wait out BatchTimeout.
	Sync bool `yaml:"sync"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every event as a JSON record keyed by order id, so all
// events of one order land on the same partition.
type KafkaSink struct {
	w      messageWriter
	topic  string
	logger *zap.Logger

	mu  sync.Mutex
	seq uint64
	err error
}

func NewKafkaSink(cfg KafkaConfig, logger *zap.Logger) (*KafkaSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka sink: no brokers")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka sink: no topic")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Sync {
		cfg.BatchSize = 1
	}
	if cfg.BatchBytes == 0 {
		cfg.BatchBytes = 1 << 20
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	wr := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchBytes:             cfg.BatchBytes,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Async:                  !cfg.Sync,
	}
	s := newKafkaSink(wr, cfg.Topic, logger)
	if wr.Async {
		wr.Completion = s.completed
	}
	return s, nil
}

// completed receives the outcome of async batches.
func (s *KafkaSink) completed(msgs []kafka.Message, err error) {
	if err != nil {
		s.fail(fmt.Errorf("kafka async write of %d messages: %w", len(msgs), err))
	}
}

func newKafkaSink(w messageWriter, topic string, logger *zap.Logger) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{w: w, topic: topic, logger: logger}
}

func (s *KafkaSink) OnEvent(ev engine.Event) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	value, err := json.Marshal(NewRecord(seq, ev))
	if err != nil {
		s.fail(err)
		return
	}
	err = s.w.WriteMessages(context.Background(), kafka.Message{
		Topic: s.topic,
		Key:   []byte(strconv.FormatUint(Key(ev), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Kind.String())},
		},
		Time: time.Now(),
	})
	if err != nil {
		s.fail(fmt.Errorf("kafka write seq %d: %w", seq, err))
	}
}

func (s *KafkaSink) fail(err error) {
	s.logger.Error("kafka sink", zap.Error(err))
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// Err returns the first delivery error.
func (s *KafkaSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}

// WaitForBrokers blocks until one of the brokers accepts a connection.
func WaitForBrokers(ctx context.Context, brokers []string, logger *zap.Logger) error {
	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = 30 * time.Second
	return backoff.Retry(func() error {
		var lastErr error
		for _, addr := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", addr)
			if err != nil {
				lastErr = err
				continue
			}
			_ = conn.Close()
			return nil
		}
		if lastErr == nil {
			lastErr = errors.New("no brokers")
		}
		logger.Warn("kafka brokers unreachable", zap.Strings("brokers", brokers), zap.Error(lastErr))
		return lastErr
	}, backoff.WithContext(boff, ctx))
}
