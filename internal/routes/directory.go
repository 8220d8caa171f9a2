package routes

import (
	"context"
	"errors"

	"github.com/congo-pay/credisave/internal/credit"
	"github.com/congo-pay/credisave/internal/identity"
)

// borrowerDirectory exposes identity users to the credit engine.
type borrowerDirectory struct {
	repo identity.Repository
}

func (d borrowerDirectory) Borrower(ctx context.Context, userID string) (credit.Borrower, error) {
	user, err := d.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return credit.Borrower{}, credit.ErrUnknownBorrower
		}
		return credit.Borrower{}, err
	}
	if user.Status != identity.StatusActive {
		return credit.Borrower{}, credit.ErrUnknownBorrower
	}
	return credit.Borrower{ID: user.ID, KYCVerified: user.KYCVerified}, nil
}
