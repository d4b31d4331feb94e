// Package worksservice runs Works contract operations inside ledger
// transactions and publishes committed changes.
package worksservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/worksledger/internal/contract"
	"github.com/starford/worksledger/internal/ledger"
	"github.com/starford/worksledger/internal/models"
)

// Change kinds passed to Notifier.PublishWorksEvent.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Notifier receives changes after their transaction commits.
type Notifier interface {
	PublishChaincodeEvent(ev ledger.ChaincodeEvent)
	PublishWorksEvent(kind, key string)
}

// Service coordinates ledger transactions and contract operations.
type Service struct {
	db       *ledger.DB
	cc       *contract.Contract
	logger   *slog.Logger
	notifier Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for transaction lifecycle logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNotifier sets the receiver of committed changes.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// NewService creates a new works service.
func NewService(db *ledger.DB, opts ...Option) *Service {
	s := &Service{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.cc = contract.New(s.logger)
	return s
}

// GetWorks returns the record stored at key.
func (s *Service) GetWorks(ctx context.Context, key string) (*models.Works, error) {
	return evaluate(ctx, s, "queryWorks", func(stub ledger.Stub) (*models.Works, error) {
		return s.cc.Get(ctx, stub, key)
	})
}

// CreateWorks stores a new record at key.
func (s *Service) CreateWorks(ctx context.Context, key string, w models.Works) (*models.Works, error) {
	out, err := submit(ctx, s, "saveWorks", func(stub ledger.Stub) (*models.Works, error) {
		return s.cc.Create(ctx, stub, key, w)
	})
	if err == nil {
		s.publishChange(KindCreated, key)
	}
	return out, err
}

// UpdateWorks replaces the record at key.
func (s *Service) UpdateWorks(ctx context.Context, key string, w models.Works) (*models.Works, error) {
	out, err := submit(ctx, s, "updateWorks", func(stub ledger.Stub) (*models.Works, error) {
		return s.cc.Update(ctx, stub, key, w)
	})
	if err == nil {
		s.publishChange(KindUpdated, key)
	}
	return out, err
}

// DeleteWorks removes the record at key and returns it.
func (s *Service) DeleteWorks(ctx context.Context, key string) (*models.Works, error) {
	out, err := submit(ctx, s, "deleteWorks", func(stub ledger.Stub) (*models.Works, error) {
		return s.cc.Delete(ctx, stub, key)
	})
	if err == nil {
		s.publishChange(KindDeleted, key)
	}
	return out, err
}

// ListWorksByAuthor returns every record by author.
func (s *Service) ListWorksByAuthor(ctx context.Context, author string) (*models.WorksQueryResultList, error) {
	return evaluate(ctx, s, "queryWorksByName", func(stub ledger.Stub) (*models.WorksQueryResultList, error) {
		return s.cc.ListByAuthor(ctx, stub, author)
	})
}

// ListWorksPageByAuthor returns one page of records by author.
func (s *Service) ListWorksPageByAuthor(ctx context.Context, author string, pageSize int32, bookmark string) (*models.WorksQueryPageResult, error) {
	return evaluate(ctx, s, "queryWorksPageByName", func(stub ledger.Stub) (*models.WorksQueryPageResult, error) {
		return s.cc.ListByAuthorPaged(ctx, stub, author, pageSize, bookmark)
	})
}

// Ping verifies the ledger is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// submit runs fn in a transaction and commits it on success.
func submit[T any](ctx context.Context, s *Service, name string, fn func(ledger.Stub) (T, error)) (T, error) {
	return run(ctx, s, name, true, fn)
}

// evaluate runs fn in a transaction that is always rolled back.
func evaluate[T any](ctx context.Context, s *Service, name string, fn func(ledger.Stub) (T, error)) (T, error) {
	return run(ctx, s, name, false, fn)
}

func run[T any](ctx context.Context, s *Service, name string, commit bool, fn func(ledger.Stub) (T, error)) (T, error) {
	var zero T

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return zero, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	start := time.Now()
	s.logger.Debug("before transaction",
		slog.String("tx", name),
		slog.String("tx_id", tx.TxID()))

	out, err := fn(tx)
	if err != nil {
		s.logger.Info("transaction failed",
			slog.String("tx", name),
			slog.String("tx_id", tx.TxID()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return zero, err
	}

	if commit {
		ev, err := tx.Commit()
		if err != nil {
			s.logger.Error("commit failed",
				slog.String("tx", name),
				slog.String("tx_id", tx.TxID()),
				slog.String("error", err.Error()))
			return zero, err
		}
		if ev != nil && s.notifier != nil {
			s.notifier.PublishChaincodeEvent(*ev)
		}
	}

	s.logger.Debug("after transaction",
		slog.String("tx", name),
		slog.String("tx_id", tx.TxID()),
		slog.Bool("committed", commit),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (s *Service) publishChange(kind, key string) {
	if s.notifier != nil {
		s.notifier.PublishWorksEvent(kind, key)
	}
}
