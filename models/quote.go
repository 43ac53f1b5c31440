package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/config"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

const quoteNumberPrefix = "QT-"

// ErrorQuoteNotEditable is returned when a content update targets a quote
// whose status no longer allows editing.
var ErrorQuoteNotEditable = errors.New("quote content can only be changed while DRAFT or REVISED")

// Quote is the persisted quote document. The wizard content (line items,
// pricing selections, step position) travels in a JSON envelope column;
// the amounts list views need are denormalized into columns so listing
// never parses content.
type Quote struct {
	ID          int             `gorm:"primary_key" json:"id"`
	CompanyId   string          `gorm:"size:64;not null;index:idx_quotes_company_status,priority:1;uniqueIndex:idx_quotes_company_number,priority:1" json:"company_id"`
	QuoteNumber string          `gorm:"size:32;not null;uniqueIndex:idx_quotes_company_number,priority:2" json:"quote_number"`
	SequenceNo  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"sequence_no"`
	Status      QuoteStatus     `gorm:"size:20;not null;index:idx_quotes_company_status,priority:2" json:"status"`
	// Wizard resume position, 0 based.
	CurrentStepIndex int    `gorm:"not null;default:0" json:"current_step_index"`
	ContactId        int    `gorm:"index" json:"contact_id"`
	ContactName      string `gorm:"size:255" json:"contact_name"`
	ContactEmail     string `gorm:"size:255" json:"contact_email"`
	ContactPhone     string `gorm:"size:50" json:"contact_phone"`
	ContactAddress   string `gorm:"type:text" json:"contact_address"`
	CategoryId       int    `gorm:"index" json:"category_id"`
	TemplateId       int    `json:"template_id"`
	// Raw wizard content envelope (products, pricing, templateCategoryId).
	// The store round-trips it without interpreting it.
	ContentJSON []byte `gorm:"type:json" json:"content_json"`
	// Totals rounded to 2dp at this persistence boundary.
	SubTotal          decimal.Decimal `gorm:"type:decimal(20,4)" json:"sub_total"`
	DiscountAmount    decimal.Decimal `gorm:"type:decimal(20,4)" json:"discount_amount"`
	TaxAmount         decimal.Decimal `gorm:"type:decimal(20,4)" json:"tax_amount"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_amount"`
	DownPaymentAmount decimal.Decimal `gorm:"type:decimal(20,4)" json:"down_payment_amount"`
	RemainingBalance  decimal.Decimal `gorm:"type:decimal(20,4)" json:"remaining_balance"`
	SignatureJSON     []byte          `gorm:"type:json" json:"signature_json"`
	Notes             string          `gorm:"type:text" json:"notes"`
	AcceptedAt        *time.Time      `json:"accepted_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (q *Quote) contentEditable() bool {
	return q.Status == QuoteStatusDraft || q.Status == QuoteStatusRevised
}

func CreateQuote(ctx context.Context, input *Quote) (*Quote, error) {
	db := config.GetDB()

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	// New quotes always start life as drafts; the caller cannot pick a status.
	input.CompanyId = companyId
	input.Status = QuoteStatusDraft
	input.SignatureJSON = nil
	input.AcceptedAt = nil

	tx := db.Begin()
	seqNo, err := utils.GetSequence[Quote](ctx, companyId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	input.SequenceNo = decimal.NewFromInt(seqNo)
	input.QuoteNumber = quoteNumberPrefix + fmt.Sprint(seqNo)

	err = tx.WithContext(ctx).Create(input).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return input, nil
}

func UpdateQuoteContent(ctx context.Context, quoteId int, updated *Quote) (*Quote, error) {
	db := config.GetDB()

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	existingQuote, err := utils.FetchModel[Quote](ctx, companyId, quoteId)
	if err != nil {
		return nil, err
	}
	if !existingQuote.contentEditable() {
		return nil, ErrorQuoteNotEditable
	}

	existingQuote.CurrentStepIndex = updated.CurrentStepIndex
	existingQuote.ContactId = updated.ContactId
	existingQuote.ContactName = updated.ContactName
	existingQuote.ContactEmail = updated.ContactEmail
	existingQuote.ContactPhone = updated.ContactPhone
	existingQuote.ContactAddress = updated.ContactAddress
	existingQuote.CategoryId = updated.CategoryId
	existingQuote.TemplateId = updated.TemplateId
	existingQuote.ContentJSON = updated.ContentJSON
	existingQuote.SubTotal = updated.SubTotal
	existingQuote.DiscountAmount = updated.DiscountAmount
	existingQuote.TaxAmount = updated.TaxAmount
	existingQuote.TotalAmount = updated.TotalAmount
	existingQuote.DownPaymentAmount = updated.DownPaymentAmount
	existingQuote.RemainingBalance = updated.RemainingBalance
	existingQuote.Notes = updated.Notes

	// db action
	err = db.WithContext(ctx).Save(existingQuote).Error
	if err != nil {
		return nil, err
	}

	return existingQuote, nil
}

// TransitionQuoteStatus applies a lifecycle change. The row is locked for
// the duration of the transaction so concurrent transitions serialize; the
// outbox event is written in the same transaction as the status update.
func TransitionQuoteStatus(ctx context.Context, quoteId int, toStatus QuoteStatus, signature *SignaturePayload) (*Quote, error) {
	db := config.GetDB()

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	tx := db.Begin()

	var quote Quote
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ?", companyId).
		First(&quote, quoteId).Error
	if err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}

	fromStatus := quote.Status
	if err := ValidateTransition(fromStatus, toStatus, signature); err != nil {
		tx.Rollback()
		return nil, err
	}

	updates := map[string]interface{}{"status": toStatus}
	if toStatus == QuoteStatusAccepted {
		// The signature and the acceptance are persisted together or not at all.
		sigJSON, err := json.Marshal(signature)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		now := time.Now().UTC()
		updates["signature_json"] = sigJSON
		updates["accepted_at"] = &now
		quote.SignatureJSON = sigJSON
		quote.AcceptedAt = &now
	}

	err = tx.WithContext(ctx).Model(&quote).Updates(updates).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	err = PublishQuoteStatusChange(ctx, tx, companyId, &quote, fromStatus, toStatus)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	quote.Status = toStatus
	return &quote, nil
}

func GetQuoteById(ctx context.Context, quoteId int) (*Quote, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	return utils.FetchModel[Quote](ctx, companyId, quoteId)
}

func ListQuotes(ctx context.Context, status *QuoteStatus) ([]*Quote, error) {
	db := config.GetDB()

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}

	var quotes []*Quote
	err := dbCtx.Order("updated_at desc").Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}
