package models

import (
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/shopspring/decimal"
)

// Contact is either a reference to a saved contact (ContactId > 0) or an
// inline contact entered during drafting. A draft qualifies for autosave
// once one of the two identifies it.
type Contact struct {
	ContactId int    `json:"contactId,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

type LineItem struct {
	ProductId     int             `json:"productId"`
	Name          string          `json:"name"`
	VariationName string          `json:"variationName,omitempty"`
	Unit          string          `json:"unit,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
}

func (li LineItem) LineTotal() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

type PricingConfig struct {
	Discount        decimal.Decimal  `json:"discount"`
	DiscountType    *DiscountType    `json:"discountType,omitempty"`
	TaxRate         decimal.Decimal  `json:"taxRate"`
	DownPayment     decimal.Decimal  `json:"downPayment"`
	DownPaymentType *DownPaymentType `json:"downPaymentType,omitempty"`
}

// ComputedSummary holds the derived money fields rounded to display
// precision. It is recomputed from the raw draft on every mutation and
// never edited directly.
type ComputedSummary struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	TaxableBase       decimal.Decimal `json:"taxableBase"`
	TaxAmount         decimal.Decimal `json:"taxAmount"`
	Total             decimal.Decimal `json:"total"`
	DownPaymentAmount decimal.Decimal `json:"downPaymentAmount"`
	RemainingBalance  decimal.Decimal `json:"remainingBalance"`
}

type SignatureMetadata struct {
	BrowserInfo string `json:"browserInfo,omitempty"`
	SignedAt    string `json:"signedAt,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// SignaturePayload is treated as opaque. The engine stores and forwards
// it but never interprets the data.
type SignaturePayload struct {
	Data      string             `json:"data"`
	Timestamp string             `json:"timestamp,omitempty"`
	Metadata  *SignatureMetadata `json:"metadata,omitempty"`
}

type QuoteDraft struct {
	ServerId           int               `json:"serverId,omitempty"`
	QuoteNumber        string            `json:"quoteNumber,omitempty"`
	CompanyId          string            `json:"companyId,omitempty"`
	Status             QuoteStatus       `json:"status"`
	CurrentStepIndex   WizardStep        `json:"currentStepIndex"`
	Contact            Contact           `json:"contact"`
	CategoryId         int               `json:"categoryId,omitempty"`
	TemplateId         int               `json:"templateId,omitempty"`
	TemplateCategoryId int               `json:"templateCategoryId,omitempty"`
	LineItems          []LineItem        `json:"lineItems"`
	Pricing            PricingConfig     `json:"pricing"`
	Summary            ComputedSummary   `json:"summary"`
	Signature          *SignaturePayload `json:"signature,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	LastSavedAt        *time.Time        `json:"lastSavedAt,omitempty"`
}

func NewQuoteDraft(companyId string) *QuoteDraft {
	draft := &QuoteDraft{
		CompanyId:        companyId,
		Status:           QuoteStatusDraft,
		CurrentStepIndex: WizardStepContact,
		LineItems:        []LineItem{},
	}
	draft.ComputeSummary()
	return draft
}

// HasIdentity reports whether the draft carries the minimum contact
// information required before it may be persisted.
func (d *QuoteDraft) HasIdentity() bool {
	return d.Contact.ContactId > 0 || strings.TrimSpace(d.Contact.Name) != ""
}

// ComputeSummary recalculates every derived money field from the raw
// draft. Order matters: discount applies to the subtotal, tax applies to
// the discounted base, the down payment applies to the post tax total.
func (d *QuoteDraft) ComputeSummary() {
	subtotal := decimal.Zero
	for _, item := range d.LineItems {
		subtotal = subtotal.Add(item.LineTotal())
	}

	discountAmount := decimal.Zero
	if d.Pricing.DiscountType != nil {
		discountAmount = utils.CalculateDiscountAmount(subtotal, d.Pricing.Discount, string(*d.Pricing.DiscountType))
	}

	taxableBase := subtotal.Sub(discountAmount)
	taxAmount := utils.CalculateTaxAmount(taxableBase, d.Pricing.TaxRate)

	total := taxableBase.Add(taxAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	downPaymentAmount := decimal.Zero
	if d.Pricing.DownPaymentType != nil {
		downPaymentAmount = utils.CalculateDownPaymentAmount(total, d.Pricing.DownPayment, string(*d.Pricing.DownPaymentType))
	}

	d.Summary = ComputedSummary{
		Subtotal:          utils.RoundMoney(subtotal),
		DiscountAmount:    utils.RoundMoney(discountAmount),
		TaxableBase:       utils.RoundMoney(taxableBase),
		TaxAmount:         utils.RoundMoney(taxAmount),
		Total:             utils.RoundMoney(total),
		DownPaymentAmount: utils.RoundMoney(downPaymentAmount),
		RemainingBalance:  utils.RoundMoney(total.Sub(downPaymentAmount)),
	}
}

// AddLineItem keeps lines unique by product. Adding an already selected
// product increments its quantity, and when the new selection names a
// different variation the unit price and variation tag are replaced
// together so the pair stays coherent.
func (d *QuoteDraft) AddLineItem(item LineItem) {
	for i := range d.LineItems {
		if d.LineItems[i].ProductId != item.ProductId {
			continue
		}
		d.LineItems[i].Quantity = d.LineItems[i].Quantity.Add(item.Quantity)
		if d.LineItems[i].VariationName != item.VariationName {
			d.LineItems[i].VariationName = item.VariationName
			d.LineItems[i].UnitPrice = item.UnitPrice
		}
		return
	}
	d.LineItems = append(d.LineItems, item)
}

func (d *QuoteDraft) SetQuantity(productId int, quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return utils.NewValidationError("quantity")
	}
	for i := range d.LineItems {
		if d.LineItems[i].ProductId == productId {
			d.LineItems[i].Quantity = quantity
			return nil
		}
	}
	return utils.NewValidationError("productId")
}

func (d *QuoteDraft) RemoveLineItem(productId int) error {
	for i := range d.LineItems {
		if d.LineItems[i].ProductId == productId {
			d.LineItems = append(d.LineItems[:i], d.LineItems[i+1:]...)
			return nil
		}
	}
	return utils.NewValidationError("productId")
}

// SetCategory clears the template and line items when the category
// changes, since both are scoped to a category.
func (d *QuoteDraft) SetCategory(categoryId int) {
	if d.CategoryId == categoryId {
		return
	}
	d.CategoryId = categoryId
	d.TemplateId = 0
	d.TemplateCategoryId = 0
	d.LineItems = []LineItem{}
}

// SetTemplate records the selection together with the template's own
// category so later validation does not need a catalog lookup.
func (d *QuoteDraft) SetTemplate(templateId int, templateCategoryId int) {
	d.TemplateId = templateId
	d.TemplateCategoryId = templateCategoryId
}

func (d *QuoteDraft) ApplyContact(update *ContactUpdate) {
	if update.ContactId != nil {
		d.Contact.ContactId = *update.ContactId
	}
	if update.Name != nil {
		d.Contact.Name = *update.Name
	}
	if update.Email != nil {
		d.Contact.Email = *update.Email
	}
	if update.Phone != nil {
		d.Contact.Phone = *update.Phone
	}
	if update.Address != nil {
		d.Contact.Address = *update.Address
	}
}

func (d *QuoteDraft) ApplyPricing(update *PricingUpdate) error {
	if update.Discount != nil {
		if update.Discount.IsNegative() {
			return utils.NewValidationError("discount")
		}
		d.Pricing.Discount = *update.Discount
	}
	if update.DiscountType != nil {
		d.Pricing.DiscountType = update.DiscountType
	}
	if update.TaxRate != nil {
		if update.TaxRate.IsNegative() {
			return utils.NewValidationError("taxRate")
		}
		d.Pricing.TaxRate = *update.TaxRate
	}
	if update.DownPayment != nil {
		if update.DownPayment.IsNegative() {
			return utils.NewValidationError("downPayment")
		}
		d.Pricing.DownPayment = *update.DownPayment
	}
	if update.DownPaymentType != nil {
		d.Pricing.DownPaymentType = update.DownPaymentType
	}
	if d.Pricing.Discount.GreaterThan(decimal.Zero) && d.Pricing.DiscountType == nil {
		return utils.NewValidationError("discountType")
	}
	if d.Pricing.DownPayment.GreaterThan(decimal.Zero) && d.Pricing.DownPaymentType == nil {
		return utils.NewValidationError("downPaymentType")
	}
	return nil
}

// Clone returns a deep copy safe to hand to a save in flight while the
// caller keeps mutating the original.
func (d *QuoteDraft) Clone() *QuoteDraft {
	clone := *d
	clone.LineItems = append([]LineItem{}, d.LineItems...)
	if d.Pricing.DiscountType != nil {
		v := *d.Pricing.DiscountType
		clone.Pricing.DiscountType = &v
	}
	if d.Pricing.DownPaymentType != nil {
		v := *d.Pricing.DownPaymentType
		clone.Pricing.DownPaymentType = &v
	}
	if d.Signature != nil {
		sig := *d.Signature
		if d.Signature.Metadata != nil {
			md := *d.Signature.Metadata
			sig.Metadata = &md
		}
		clone.Signature = &sig
	}
	if d.LastSavedAt != nil {
		t := *d.LastSavedAt
		clone.LastSavedAt = &t
	}
	return &clone
}

type ContactUpdate struct {
	ContactId *int    `json:"contactId"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}

type PricingUpdate struct {
	Discount        *decimal.Decimal `json:"discount"`
	DiscountType    *DiscountType    `json:"discountType"`
	TaxRate         *decimal.Decimal `json:"taxRate"`
	DownPayment     *decimal.Decimal `json:"downPayment"`
	DownPaymentType *DownPaymentType `json:"downPaymentType"`
}

type AddProductInput struct {
	ProductId     int             `json:"productId" binding:"required"`
	VariationName *string         `json:"variationName"`
	Quantity      decimal.Decimal `json:"quantity"`
}

type SetQuantityInput struct {
	ProductId int             `json:"productId" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

type RemoveProductInput struct {
	ProductId int `json:"productId" binding:"required"`
}

// DraftUpdate is the partial mutation payload. Absent sections leave the
// draft untouched. Product add and template selection need a catalog
// lookup, so the session applies those before the pure sections.
type DraftUpdate struct {
	Contact       *ContactUpdate      `json:"contact"`
	CategoryId    *int                `json:"categoryId"`
	TemplateId    *int                `json:"templateId"`
	AddProduct    *AddProductInput    `json:"addProduct"`
	SetQuantity   *SetQuantityInput   `json:"setQuantity"`
	RemoveProduct *RemoveProductInput `json:"removeProduct"`
	Pricing       *PricingUpdate      `json:"pricing"`
	Notes         *string             `json:"notes"`
}
