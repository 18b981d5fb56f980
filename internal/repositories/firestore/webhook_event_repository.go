package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	pfirestore "github.com/soukly/api/internal/platform/firestore"
	"github.com/soukly/api/internal/repositories"
)

const webhookEventCollection = "webhook_events"

type webhookEventDocument struct {
	ProcessedAt time.Time `firestore:"processedAt"`
}

// WebhookEventRepository records processed gateway event ids so webhook
// replays short-circuit instead of re-running side effects.
type WebhookEventRepository struct {
	base *pfirestore.BaseRepository[webhookEventDocument]
}

var _ repositories.WebhookEventRepository = (*WebhookEventRepository)(nil)

// NewWebhookEventRepository constructs a Firestore-backed webhook event ledger.
func NewWebhookEventRepository(provider *pfirestore.Provider) (*WebhookEventRepository, error) {
	if provider == nil {
		return nil, errors.New("webhook event repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[webhookEventDocument](provider, webhookEventCollection, nil, nil)
	return &WebhookEventRepository{base: base}, nil
}

// MarkProcessed creates the dedupe document; a second call with the same id
// surfaces as a conflict. Inside a transaction the create is buffered, so the
// ledger entry commits or aborts together with the event's side effects.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, eventID string, processedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("webhook event repository not initialised")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return errors.New("webhook event repository: event id is required")
	}
	ref, err := r.base.DocumentRef(ctx, eventID)
	if err != nil {
		return err
	}
	doc := webhookEventDocument{ProcessedAt: processedAt.UTC()}
	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		return pfirestore.WrapError("webhook_events.mark_processed", tx.Create(ref, doc))
	}
	_, err = ref.Create(ctx, doc)
	return pfirestore.WrapError("webhook_events.mark_processed", err)
}
