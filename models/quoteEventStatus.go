package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/config"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"gorm.io/gorm"
)

// QuoteEventStatus is an ops-facing view of one outbox row for a quote.
// It exposes publish progress so support can see whether a lifecycle
// event reached Pub/Sub and why it is retrying.
type QuoteEventStatus struct {
	RecordId         int         `json:"record_id"`
	QuoteId          int         `json:"quote_id"`
	QuoteNumber      string      `json:"quote_number"`
	FromStatus       QuoteStatus `json:"from_status"`
	ToStatus         QuoteStatus `json:"to_status"`
	PublishStatus    string      `json:"publish_status"`
	PublishAttempts  int         `json:"publish_attempts"`
	NextAttemptAt    *time.Time  `json:"next_attempt_at"`
	LastPublishError *string     `json:"last_publish_error"`
	OccurredAt       time.Time   `json:"occurred_at"`
	PublishedAt      *time.Time  `json:"published_at"`
}

// GetQuoteEventStatuses returns the outbox history for one quote, newest
// first. An empty history is not an error; callers see an empty list.
func GetQuoteEventStatuses(ctx context.Context, quoteId int) ([]*QuoteEventStatus, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var records []QuoteEventRecord
	if err := db.WithContext(ctx).
		Where("company_id = ? AND quote_id = ?", companyId, quoteId).
		Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	statuses := make([]*QuoteEventStatus, 0, len(records))
	for _, rec := range records {
		statuses = append(statuses, &QuoteEventStatus{
			RecordId:         rec.ID,
			QuoteId:          rec.QuoteId,
			QuoteNumber:      rec.QuoteNumber,
			FromStatus:       rec.FromStatus,
			ToStatus:         rec.ToStatus,
			PublishStatus:    rec.PublishStatus,
			PublishAttempts:  rec.PublishAttempts,
			NextAttemptAt:    rec.NextAttemptAt,
			LastPublishError: rec.LastPublishError,
			OccurredAt:       rec.OccurredAt,
			PublishedAt:      rec.PublishedAt,
		})
	}
	return statuses, nil
}

// ReprocessQuoteEvents resets a quote's FAILED and DEAD outbox rows to
// PENDING so the dispatcher picks them up on its next poll. Attempt
// counters restart so a formerly poisoned row gets a full retry budget.
func ReprocessQuoteEvents(ctx context.Context, quoteId int) ([]*QuoteEventStatus, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	res := db.WithContext(ctx).
		Model(&QuoteEventRecord{}).
		Where("company_id = ? AND quote_id = ? AND publish_status IN ?",
			companyId, quoteId, []string{OutboxPublishStatusFailed, OutboxPublishStatusDead}).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusPending,
			"publish_attempts":   0,
			"next_attempt_at":    nil,
			"locked_at":          nil,
			"locked_by":          nil,
			"last_publish_error": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return GetQuoteEventStatuses(ctx, quoteId)
}
