package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/X-culture24/my-farm/internal/repository"
	"github.com/X-culture24/my-farm/pkg/database"
)

// Pool is what the store needs from a connection pool. *pgxpool.Pool and
// pgxmock pools satisfy it.
type Pool interface {
	database.DBTX
	database.TxBeginner
}

// Store implements repository.Store on PostgreSQL.
type Store struct {
	db    database.DBTX
	begin database.TxBeginner
}

// NewStore returns a store backed by pool.
func NewStore(pool Pool) *Store {
	return &Store{db: pool, begin: pool}
}

func (s *Store) Sales() repository.SaleRepository {
	return NewSaleRepository(s.db)
}

func (s *Store) Products() repository.ProductRepository {
	return NewProductRepository(s.db)
}

// WithinTx runs fn in a read-committed transaction. Calls nested inside fn
// reuse the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.begin == nil {
		return fn(s)
	}
	return database.WithTx(ctx, s.begin, func(tx pgx.Tx) error {
		return fn(&Store{db: tx})
	})
}
