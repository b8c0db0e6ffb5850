// Package sequencer serializes commands from many producers onto one engine.
package sequencer

import (
	"context"
	"errors"
	"sync"

	"github.com/joripage/matching-engine/pkg/command"
	"github.com/joripage/matching-engine/pkg/engine"
	"go.uber.org/zap"
)

var (
	ErrBusy   = errors.New("sequencer mailbox full")
	ErrClosed = errors.New("sequencer closed")
)

type Config struct {
	MailboxSize int `yaml:"mailbox_size"`
	BatchMax    int `yaml:"batch_max"`
}

// ResultFunc is called on the sequencer goroutine after each command, with the
// command's sequence number and the engine's verdict.
type ResultFunc func(seq uint64, cmd command.Command, err error)

// Sequencer owns an engine. Only Run touches it.
type Sequencer struct {
	engine   *engine.Engine
	cfg      Config
	onResult ResultFunc
	logger   *zap.Logger

	mu      sync.RWMutex
	closed  bool
	mailbox chan command.Command
	done    chan struct{}

	// stop wakes producers blocked in Submit once Close is called or Run
	// exits, so they release mu.
	stop     chan struct{}
	stopOnce sync.Once

	seq uint64
}

type Option func(*Sequencer)

func WithResultFunc(fn ResultFunc) Option {
	return func(s *Sequencer) { s.onResult = fn }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(e *engine.Engine, cfg Config, opts ...Option) *Sequencer {
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = 4096
	}
	if cfg.BatchMax <= 0 {
		cfg.BatchMax = 256
	}
	s := &Sequencer{
		engine:  e,
		cfg:     cfg,
		logger:  zap.NewNop(),
		mailbox: make(chan command.Command, cfg.MailboxSize),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit enqueues cmd, waiting for mailbox space.
func (s *Sequencer) Submit(ctx context.Context, cmd command.Command) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.stopped() {
		return ErrClosed
	}
	select {
	case s.mailbox <- cmd:
		return nil
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues cmd only if the mailbox has room.
func (s *Sequencer) TrySubmit(cmd command.Command) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.stopped() {
		return ErrClosed
	}
	select {
	case s.mailbox <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

// Close stops intake. Run applies whatever is still queued, then returns.
// Producers blocked in Submit get ErrClosed.
func (s *Sequencer) Close() {
	s.halt()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.mailbox)
}

func (s *Sequencer) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *Sequencer) halt() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed when Run returns.
func (s *Sequencer) Done() <-chan struct{} {
	return s.done
}

// Seq is the number of commands applied so far. Call it after Done.
func (s *Sequencer) Seq() uint64 {
	return s.seq
}

// Run applies commands in arrival order until Close drains the mailbox or ctx
// is cancelled. Once Run returns, Submit no longer blocks.
func (s *Sequencer) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.halt()

	batch := make([]command.Command, 0, s.cfg.BatchMax)
	for {
		var (
			first command.Command
			ok    bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case first, ok = <-s.mailbox:
			if !ok {
				return nil
			}
		}

		batch = append(batch[:0], first)
	fill:
		for len(batch) < s.cfg.BatchMax {
			select {
			case cmd, ok := <-s.mailbox:
				if !ok {
					break fill
				}
				batch = append(batch, cmd)
			default:
				break fill
			}
		}

		for _, cmd := range batch {
			s.apply(cmd)
		}
	}
}

func (s *Sequencer) apply(cmd command.Command) {
	s.seq++
	err := cmd.Apply(s.engine)
	if err != nil {
		s.logger.Debug("command rejected", zap.Uint64("seq", s.seq), zap.Stringer("cmd", cmd), zap.Error(err))
	}
	if s.onResult != nil {
		s.onResult(s.seq, cmd, err)
	}
}
