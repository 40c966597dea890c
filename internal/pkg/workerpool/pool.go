package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned by Submit after Shutdown
var ErrPoolClosed = errors.New("worker pool is closed")

// Config holds worker pool configuration
type Config struct {
	Workers int `mapstructure:"workers"` // fixed worker count
}

// DefaultConfig returns the default pool configuration
func DefaultConfig() *Config {
	return &Config{Workers: 8}
}

// Statistics holds pool counters
type Statistics struct {
	mu sync.RWMutex

	Submitted int64
	Completed int64
	Failed    int64
}

func (s *Statistics) incSubmitted() {
	s.mu.Lock()
	s.Submitted++
	s.mu.Unlock()
}

func (s *Statistics) incCompleted(failed bool) {
	s.mu.Lock()
	s.Completed++
	if failed {
		s.Failed++
	}
	s.mu.Unlock()
}

// Get returns a snapshot of the statistics
func (s *Statistics) Get() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Statistics{
		Submitted: s.Submitted,
		Completed: s.Completed,
		Failed:    s.Failed,
	}
}

// Pool runs CPU-bound jobs on a bounded set of workers so request
// goroutines never do the heavy lifting themselves.
type Pool struct {
	pool   *ants.Pool
	stats  *Statistics
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// New creates a pool with a fixed worker count
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}

	antsPool, err := ants.NewPool(config.Workers,
		ants.WithPanicHandler(func(err interface{}) {
			logger.Error("worker panic", zap.Any("error", err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		pool:   antsPool,
		stats:  &Statistics{},
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}, nil
}

// Submit queues a job on the pool
func (p *Pool) Submit(task func()) error {
	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	default:
	}

	p.stats.incSubmitted()
	return p.pool.Submit(func() {
		defer p.stats.incCompleted(false)
		task()
	})
}

// Run executes a job on the pool and waits for its error, honoring ctx
// cancellation while waiting.
func (p *Pool) Run(ctx context.Context, task func() error) error {
	done := make(chan error, 1)

	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	default:
	}

	p.stats.incSubmitted()
	err := p.pool.Submit(func() {
		taskErr := task()
		p.stats.incCompleted(taskErr != nil)
		done <- taskErr
	})
	if err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running returns the number of busy workers
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Free returns the number of idle workers
func (p *Pool) Free() int {
	return p.pool.Free()
}

// Stats returns a snapshot of the pool counters
func (p *Pool) Stats() Statistics {
	return p.stats.Get()
}

// Shutdown stops the pool and releases its workers
func (p *Pool) Shutdown() {
	p.cancel()
	p.pool.Release()
}
