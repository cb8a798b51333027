package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/sextant/internal/core"
	"go.uber.org/zap"
)

// DefaultSignalTTL is how long a generated signal stays valid for consumers
// that act on live signals.
const DefaultSignalTTL = time.Hour

// Engine manages and runs strategies in registration order
type Engine struct {
	mu         sync.RWMutex
	strategies []Strategy
	byName     map[string]Strategy
	ttl        time.Duration
	logger     *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		byName: make(map[string]Strategy),
		ttl:    DefaultSignalTTL,
		logger: l,
	}
}

// SetSignalTTL overrides the expiry stamped on generated signals.
func (e *Engine) SetSignalTTL(ttl time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ttl > 0 {
		e.ttl = ttl
	}
}

// Register adds a strategy to the engine. Registering a name twice replaces
// the earlier strategy in place.
func (e *Engine) Register(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byName[s.Name()]; ok {
		for i, existing := range e.strategies {
			if existing.Name() == s.Name() {
				e.strategies[i] = s
			}
		}
	} else {
		e.strategies = append(e.strategies, s)
	}
	e.byName[s.Name()] = s
}

// Get retrieves a strategy by name
func (e *Engine) Get(name string) (Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.byName[name]
	return s, ok
}

// GetAll returns all registered strategies in registration order
func (e *Engine) GetAll() []Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Strategy, len(e.strategies))
	copy(result, e.strategies)
	return result
}

// Analyze runs all strategies on the given context
func (e *Engine) Analyze(ctx context.Context, analysisCtx AnalysisContext) ([]core.Signal, error) {
	strategies := e.GetAll()

	e.mu.RLock()
	ttl := e.ttl
	e.mu.RUnlock()

	var allSignals []core.Signal

	for _, s := range strategies {
		select {
		case <-ctx.Done():
			return allSignals, ctx.Err()
		default:
		}

		signals, err := s.Analyze(analysisCtx)
		if err != nil {
			e.logger.Warn("strategy analysis failed",
				zap.String("strategy", s.Name()),
				zap.Error(err),
			)
			continue
		}

		for i := range signals {
			signals[i].Strategy = s.Name()
			signals[i].ExpiresAt = signals[i].GeneratedAt.Add(ttl)
		}

		allSignals = append(allSignals, signals...)
	}

	return allSignals, nil
}
