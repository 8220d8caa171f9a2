package ledger

import (
	"context"
	"errors"
	"fmt"
)

// RunAtomic executes fn inside one store transaction. A write conflict is
// retried exactly once; a second conflict is reported as ErrConflict.
func RunAtomic(ctx context.Context, store Store, fn func(ctx context.Context, tx Tx) error) error {
	err := store.Atomic(ctx, fn)
	if !errors.Is(err, ErrWriteConflict) {
		return err
	}
	err = store.Atomic(ctx, fn)
	if errors.Is(err, ErrWriteConflict) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
