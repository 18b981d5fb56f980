package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/soukly/api/internal/platform/firestore"
	"github.com/soukly/api/internal/repositories"
)

const counterCollection = "counters"

type counterDocument struct {
	Value     int64     `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// CounterRepository issues monotonic sequence numbers, one document per scope.
type CounterRepository struct {
	provider *pfirestore.Provider
}

var _ repositories.CounterRepository = (*CounterRepository)(nil)

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{provider: provider}, nil
}

// Next increments and returns the counter for the given scope, creating the
// document on first use.
func (r *CounterRepository) Next(ctx context.Context, scope string) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("counter repository not initialised")
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return 0, errors.New("counter repository: scope is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}

	var next int64
	err = pfirestore.RunWrite(ctx, client, func(txCtx context.Context, tx *firestore.Transaction) error {
		ref := client.Collection(counterCollection).Doc(scope)
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return pfirestore.WrapError("counters.next", err)
		}

		var doc counterDocument
		if snap != nil && snap.Exists() {
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
		}
		doc.Value++
		doc.UpdatedAt = time.Now().UTC()
		next = doc.Value
		return pfirestore.WrapError("counters.next", tx.Set(ref, doc))
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}
