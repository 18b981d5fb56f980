package firestore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pfirestore "github.com/soukly/api/internal/platform/firestore"
)

// Monetary amounts are stored as strings so Firestore never holds a binary
// float representation of a price.
func encodeDecimal(value decimal.Decimal) string {
	return value.String()
}

func decodeDecimal(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode amount %q: %w", raw, err)
	}
	return value, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

type pageCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	DocID     string    `json:"docId"`
}

func encodePageToken(cursor pageCursor) string {
	if cursor.DocID == "" {
		return ""
	}
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodePageToken(token string) (pageCursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return pageCursor{}, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return pageCursor{}, fmt.Errorf("invalid page token: %w", err)
	}
	var cursor pageCursor
	if err := json.Unmarshal(decoded, &cursor); err != nil {
		return pageCursor{}, fmt.Errorf("invalid page token: %w", err)
	}
	return cursor, nil
}

func normalizePageSize(size, fallback, max int) int {
	if size <= 0 {
		return fallback
	}
	if size > max {
		return max
	}
	return size
}

func softDeletedError(op string) error {
	return pfirestore.NotFoundError(op, nil)
}
