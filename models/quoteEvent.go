package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/config"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuoteEventRecord is the transactional outbox row for quote lifecycle changes.
// Rows are written inside the same DB transaction as the status update and
// published to Pub/Sub asynchronously by the outbox dispatcher.
type QuoteEventRecord struct {
	ID          int         `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	CompanyId   string      `gorm:"size:64;not null;index" json:"company_id"`
	QuoteId     int         `gorm:"not null;index" json:"quote_id"`
	QuoteNumber string      `gorm:"size:32" json:"quote_number"`
	FromStatus  QuoteStatus `gorm:"size:20;not null" json:"from_status"`
	ToStatus    QuoteStatus `gorm:"size:20;not null" json:"to_status"`
	OccurredAt  time.Time   `gorm:"index;not null" json:"occurred_at"`
	// Outbox metadata (publish happens after commit via dispatcher).
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToQuoteEventMessage(record QuoteEventRecord) config.QuoteEventMessage {
	return config.QuoteEventMessage{
		ID:            record.ID,
		CompanyId:     record.CompanyId,
		QuoteId:       record.QuoteId,
		QuoteNumber:   record.QuoteNumber,
		FromStatus:    string(record.FromStatus),
		ToStatus:      string(record.ToStatus),
		OccurredAt:    record.OccurredAt,
		CorrelationId: record.CorrelationId,
	}
}

// PublishQuoteStatusChange implements the transactional outbox:
// it writes the event record inside the caller's DB transaction but does NOT publish to Pub/Sub.
// Publishing is performed asynchronously by the outbox dispatcher after commit.
func PublishQuoteStatusChange(ctx context.Context, db *gorm.DB, companyId string, quote *Quote, fromStatus QuoteStatus, toStatus QuoteStatus) error {

	if !config.QuoteEventsEnabled() {
		return nil
	}

	record := QuoteEventRecord{
		CompanyId:     companyId,
		QuoteId:       quote.ID,
		QuoteNumber:   quote.QuoteNumber,
		FromStatus:    fromStatus,
		ToStatus:      toStatus,
		OccurredAt:    time.Now().UTC(),
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	err := db.Create(&record).Error
	if err != nil {
		return err
	}
	return nil
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
