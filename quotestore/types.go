package quotestore

import (
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/models"
)

// Wire types for the quote store REST API. The engine client and the
// bundled store service share them so the two sides cannot drift.

// QuoteContent is the wizard content envelope the store persists as one
// JSON column and round-trips without interpreting.
type QuoteContent struct {
	TemplateCategoryId int                    `json:"templateCategoryId,omitempty"`
	Products           []models.LineItem      `json:"products"`
	Pricing            models.PricingConfig   `json:"pricing"`
	Summary            models.ComputedSummary `json:"summary"`
}

// QuotePayload is the save body (POST create, PUT update). When Status is
// set the request is a lifecycle transition and every content field is
// ignored; the engine forces a content save beforehand.
type QuotePayload struct {
	CurrentStepIndex int                      `json:"currentStepIndex"`
	Contact          models.Contact           `json:"contact"`
	CategoryId       int                      `json:"categoryId,omitempty"`
	TemplateId       int                      `json:"templateId,omitempty"`
	Content          QuoteContent             `json:"content"`
	Notes            string                   `json:"notes,omitempty"`
	Status           models.QuoteStatus       `json:"status,omitempty"`
	Signature        *models.SignaturePayload `json:"signature,omitempty"`
}

type QuoteResponse struct {
	ID               int                      `json:"id"`
	QuoteNumber      string                   `json:"quoteNumber"`
	Status           models.QuoteStatus       `json:"status"`
	CurrentStepIndex int                      `json:"currentStepIndex"`
	Contact          models.Contact           `json:"contact"`
	CategoryId       int                      `json:"categoryId,omitempty"`
	TemplateId       int                      `json:"templateId,omitempty"`
	Content          QuoteContent             `json:"content"`
	Signature        *models.SignaturePayload `json:"signature,omitempty"`
	Notes            string                   `json:"notes,omitempty"`
	AcceptedAt       *time.Time               `json:"acceptedAt,omitempty"`
	UpdatedAt        time.Time                `json:"updatedAt"`
}

// PayloadFromDraft flattens a draft into the save body. The computed
// summary rides inside the content envelope; the store additionally
// denormalizes the amounts into columns for list views.
func PayloadFromDraft(draft *models.QuoteDraft) *QuotePayload {
	return &QuotePayload{
		CurrentStepIndex: int(draft.CurrentStepIndex),
		Contact:          draft.Contact,
		CategoryId:       draft.CategoryId,
		TemplateId:       draft.TemplateId,
		Content: QuoteContent{
			TemplateCategoryId: draft.TemplateCategoryId,
			Products:           draft.LineItems,
			Pricing:            draft.Pricing,
			Summary:            draft.Summary,
		},
		Notes: draft.Notes,
	}
}

// ToDraft rebuilds an editable draft from a stored quote (edit mode).
func (resp *QuoteResponse) ToDraft(companyId string) *models.QuoteDraft {
	draft := &models.QuoteDraft{
		ServerId:           resp.ID,
		QuoteNumber:        resp.QuoteNumber,
		CompanyId:          companyId,
		Status:             resp.Status,
		CurrentStepIndex:   models.WizardStep(resp.CurrentStepIndex),
		Contact:            resp.Contact,
		CategoryId:         resp.CategoryId,
		TemplateId:         resp.TemplateId,
		TemplateCategoryId: resp.Content.TemplateCategoryId,
		LineItems:          resp.Content.Products,
		Pricing:            resp.Content.Pricing,
		Signature:          resp.Signature,
		Notes:              resp.Notes,
	}
	if draft.LineItems == nil {
		draft.LineItems = []models.LineItem{}
	}
	if !draft.CurrentStepIndex.Valid() {
		draft.CurrentStepIndex = models.WizardStepContact
	}
	savedAt := resp.UpdatedAt
	draft.LastSavedAt = &savedAt
	draft.ComputeSummary()
	return draft
}

// ApplyPayloadToEntity maps a save body onto the gorm entity (store side).
func ApplyPayloadToEntity(payload *QuotePayload, quote *models.Quote) error {
	contentJSON, err := json.Marshal(payload.Content)
	if err != nil {
		return err
	}

	quote.CurrentStepIndex = payload.CurrentStepIndex
	quote.ContactId = payload.Contact.ContactId
	quote.ContactName = payload.Contact.Name
	quote.ContactEmail = payload.Contact.Email
	quote.ContactPhone = payload.Contact.Phone
	quote.ContactAddress = payload.Contact.Address
	quote.CategoryId = payload.CategoryId
	quote.TemplateId = payload.TemplateId
	quote.ContentJSON = contentJSON
	quote.SubTotal = payload.Content.Summary.Subtotal
	quote.DiscountAmount = payload.Content.Summary.DiscountAmount
	quote.TaxAmount = payload.Content.Summary.TaxAmount
	quote.TotalAmount = payload.Content.Summary.Total
	quote.DownPaymentAmount = payload.Content.Summary.DownPaymentAmount
	quote.RemainingBalance = payload.Content.Summary.RemainingBalance
	quote.Notes = payload.Notes
	return nil
}

// ContentFromEntity parses the stored content envelope.
func ContentFromEntity(quote *models.Quote) (QuoteContent, error) {
	var content QuoteContent
	if len(quote.ContentJSON) == 0 {
		return content, nil
	}
	err := json.Unmarshal(quote.ContentJSON, &content)
	return content, err
}

// ResponseFromEntity maps the gorm entity back to the wire shape (store side).
func ResponseFromEntity(quote *models.Quote) (*QuoteResponse, error) {
	content, err := ContentFromEntity(quote)
	if err != nil {
		return nil, err
	}
	if content.Products == nil {
		content.Products = []models.LineItem{}
	}

	var signature *models.SignaturePayload
	if len(quote.SignatureJSON) > 0 {
		signature = &models.SignaturePayload{}
		if err := json.Unmarshal(quote.SignatureJSON, signature); err != nil {
			return nil, err
		}
	}

	return &QuoteResponse{
		ID:               quote.ID,
		QuoteNumber:      quote.QuoteNumber,
		Status:           quote.Status,
		CurrentStepIndex: quote.CurrentStepIndex,
		Contact: models.Contact{
			ContactId: quote.ContactId,
			Name:      quote.ContactName,
			Email:     quote.ContactEmail,
			Phone:     quote.ContactPhone,
			Address:   quote.ContactAddress,
		},
		CategoryId: quote.CategoryId,
		TemplateId: quote.TemplateId,
		Content:    content,
		Signature:  signature,
		Notes:      quote.Notes,
		AcceptedAt: quote.AcceptedAt,
		UpdatedAt:  quote.UpdatedAt,
	}, nil
}
