package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

const defaultPollInterval = time.Second

// ReconcileFacade exposes the subset of application functionality required by the worker.
type ReconcileFacade interface {
	DuePayments(ctx context.Context, limit int) ([]model.Payment, error)
	ReconcilePayment(ctx context.Context, paymentID int64) (*model.Payment, error)
}

// ReconcileSweeper periodically reconciles PROCESSING payments on a worker pool.
type ReconcileSweeper struct {
	facade       ReconcileFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs     chan model.Payment
	inflight sync.Map
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	mu       sync.Mutex
}

// NewReconcileSweeper constructs the sweeper worker pool.
func NewReconcileSweeper(facade ReconcileFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *ReconcileSweeper {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &ReconcileSweeper{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger.With(slog.String("component", "reconcile_sweeper")),
		jobs:         make(chan model.Payment, batchSize),
	}
}

// Start launches background processing.
func (s *ReconcileSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(runCtx)
	}

	s.wg.Add(1)
	go s.dispatch(runCtx)
}

// Stop cancels the sweep and waits for in-flight reconciliations.
func (s *ReconcileSweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *ReconcileSweeper) dispatch(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReconcileSweeper) sweep(ctx context.Context) {
	payments, err := s.facade.DuePayments(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("list payments for reconciliation failed", slog.String("error", err.Error()))
		return
	}
	for _, payment := range payments {
		// a slow provider can keep a payment queued across ticks
		if _, busy := s.inflight.LoadOrStore(payment.ID, struct{}{}); busy {
			continue
		}
		select {
		case <-ctx.Done():
			s.inflight.Delete(payment.ID)
			return
		case s.jobs <- payment:
		}
	}
}

func (s *ReconcileSweeper) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payment := <-s.jobs:
			s.reconcile(ctx, payment)
			s.inflight.Delete(payment.ID)
		}
	}
}

func (s *ReconcileSweeper) reconcile(ctx context.Context, payment model.Payment) {
	updated, err := s.facade.ReconcilePayment(ctx, payment.ID)
	if err != nil {
		s.logger.Error("reconcile payment failed",
			slog.String("transaction_id", payment.TransactionID),
			slog.String("error", err.Error()),
		)
		return
	}
	if updated.Status != payment.Status {
		s.logger.Info("payment reconciled",
			slog.String("transaction_id", payment.TransactionID),
			slog.String("status", string(updated.Status)),
		)
	}
}
