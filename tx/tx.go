package tx

import (
	"context"
	"fmt"
)

// Txer begins transactions against an underlying store.
type Txer interface {
	BeginTx(ctx context.Context) (Tx, error)
}

type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Handle is intended for deferred execution to correctly handle a transaction if
// a failure occurs. Arg `err` must a pointer to the error returned by the caller.
func Handle(ctx context.Context, tx Tx, err *error) {
	if r := recover(); r != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			panic(fmt.Errorf("panic: %v; failed to rollback transaction: %w", r, rErr))
		}
		panic(r)
	}

	if err != nil {
		baseErr := *err
		if baseErr != nil {
			if rErr := tx.Rollback(ctx); rErr != nil {
				*err = fmt.Errorf("%w; failed to rollback transaction: %w", baseErr, rErr)
			}
			return
		}
	}

	if cErr := tx.Commit(ctx); cErr != nil {
		*err = fmt.Errorf("failed to commit transaction: %w", cErr)
	}
}

// Repository is implemented by repositories whose operations can be scoped to
// a transaction.
type Repository[R any] interface {
	Txer
	// WithTx returns a copy of the repository that runs all operations on
	// the given transaction.
	WithTx(tx Tx) (R, error)
	// BeginTxFunc begins a transaction and invokes fn with a transaction
	// scoped repository. The transaction is committed if fn returns nil and
	// rolled back if fn returns an error or panics.
	BeginTxFunc(ctx context.Context, fn func(ctx context.Context, txn Tx, repo R) error) error
}
