package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/quotes_backend/models"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/shopspring/decimal"
)

func discountTypePtr(t models.DiscountType) *models.DiscountType { return &t }

func downPaymentTypePtr(t models.DownPaymentType) *models.DownPaymentType { return &t }

func assertMoney(t *testing.T, name string, got decimal.Decimal, expected float64) {
	t.Helper()
	if !got.Equal(decimal.NewFromFloat(expected)) {
		t.Fatalf("%s expected %v, got %s", name, expected, got)
	}
}

func TestComputeSummary_DiscountTaxDownPaymentOrder(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	draft.AddLineItem(models.LineItem{ProductId: 1, Name: "Panel", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)})
	draft.AddLineItem(models.LineItem{ProductId: 2, Name: "Mount", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)})
	draft.Pricing = models.PricingConfig{
		Discount:        decimal.NewFromInt(10),
		DiscountType:    discountTypePtr(models.DiscountTypePercentage),
		TaxRate:         decimal.NewFromInt(8),
		DownPayment:     decimal.NewFromInt(20),
		DownPaymentType: downPaymentTypePtr(models.DownPaymentTypePercentage),
	}
	draft.ComputeSummary()

	assertMoney(t, "subtotal", draft.Summary.Subtotal, 250)
	assertMoney(t, "discountAmount", draft.Summary.DiscountAmount, 25)
	assertMoney(t, "taxableBase", draft.Summary.TaxableBase, 225)
	assertMoney(t, "taxAmount", draft.Summary.TaxAmount, 18)
	assertMoney(t, "total", draft.Summary.Total, 243)
	assertMoney(t, "downPaymentAmount", draft.Summary.DownPaymentAmount, 48.60)
	assertMoney(t, "remainingBalance", draft.Summary.RemainingBalance, 194.40)
}

func TestComputeSummary_FixedDiscountClampedToSubtotal(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	draft.AddLineItem(models.LineItem{ProductId: 1, Name: "Panel", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)})
	draft.Pricing = models.PricingConfig{
		Discount:     decimal.NewFromInt(500),
		DiscountType: discountTypePtr(models.DiscountTypeFixed),
		TaxRate:      decimal.NewFromInt(8),
	}
	draft.ComputeSummary()

	assertMoney(t, "subtotal", draft.Summary.Subtotal, 100)
	assertMoney(t, "discountAmount", draft.Summary.DiscountAmount, 100)
	assertMoney(t, "taxableBase", draft.Summary.TaxableBase, 0)
	assertMoney(t, "taxAmount", draft.Summary.TaxAmount, 0)
	assertMoney(t, "total", draft.Summary.Total, 0)
	assertMoney(t, "remainingBalance", draft.Summary.RemainingBalance, 0)
}

func TestComputeSummary_EmptyDraftIsAllZero(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	draft.ComputeSummary()

	assertMoney(t, "subtotal", draft.Summary.Subtotal, 0)
	assertMoney(t, "discountAmount", draft.Summary.DiscountAmount, 0)
	assertMoney(t, "taxAmount", draft.Summary.TaxAmount, 0)
	assertMoney(t, "total", draft.Summary.Total, 0)
	assertMoney(t, "downPaymentAmount", draft.Summary.DownPaymentAmount, 0)
	assertMoney(t, "remainingBalance", draft.Summary.RemainingBalance, 0)
}

func TestComputeSummary_Idempotent(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	draft.AddLineItem(models.LineItem{ProductId: 1, Name: "Panel", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromFloat(19.99)})
	draft.Pricing = models.PricingConfig{
		Discount:     decimal.NewFromFloat(7.5),
		DiscountType: discountTypePtr(models.DiscountTypePercentage),
		TaxRate:      decimal.NewFromFloat(8.25),
	}

	draft.ComputeSummary()
	first := draft.Summary
	draft.ComputeSummary()
	second := draft.Summary

	if !first.Total.Equal(second.Total) || !first.RemainingBalance.Equal(second.RemainingBalance) {
		t.Fatalf("recompute changed results: %+v vs %+v", first, second)
	}
}

func TestAddLineItem_MergesByProduct(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	draft.AddLineItem(models.LineItem{ProductId: 5, Name: "Door", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)})
	draft.AddLineItem(models.LineItem{ProductId: 5, Name: "Door", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(80)})

	if len(draft.LineItems) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(draft.LineItems))
	}
	if !draft.LineItems[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected quantity 3, got %s", draft.LineItems[0].Quantity)
	}
}

func TestAddLineItem_VariationReselectReplacesPrice(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	draft.AddLineItem(models.LineItem{ProductId: 5, Name: "Door", VariationName: "Oak", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(120)})
	draft.AddLineItem(models.LineItem{ProductId: 5, Name: "Door", VariationName: "Pine", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(90)})

	if len(draft.LineItems) != 1 {
		t.Fatalf("expected one line per product, got %d", len(draft.LineItems))
	}
	line := draft.LineItems[0]
	if !line.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected quantity 2, got %s", line.Quantity)
	}
	if line.VariationName != "Pine" || !line.UnitPrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected Pine at 90, got %s at %s", line.VariationName, line.UnitPrice)
	}
}

func TestSetQuantity(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	draft.AddLineItem(models.LineItem{ProductId: 5, Name: "Door", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)})

	if err := draft.SetQuantity(5, decimal.NewFromInt(4)); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	if !draft.LineItems[0].Quantity.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected quantity 4, got %s", draft.LineItems[0].Quantity)
	}

	err := draft.SetQuantity(5, decimal.Zero)
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}

	err = draft.SetQuantity(99, decimal.NewFromInt(1))
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error for unknown product, got %v", err)
	}
}

func TestRemoveLineItem(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	draft.AddLineItem(models.LineItem{ProductId: 5, Name: "Door", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)})
	draft.AddLineItem(models.LineItem{ProductId: 6, Name: "Window", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(60)})

	if err := draft.RemoveLineItem(5); err != nil {
		t.Fatalf("RemoveLineItem: %v", err)
	}
	if len(draft.LineItems) != 1 || draft.LineItems[0].ProductId != 6 {
		t.Fatalf("expected only product 6 to remain")
	}

	err := draft.RemoveLineItem(5)
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error for missing product, got %v", err)
	}
}

func TestSetCategory_ClearsTemplateAndLineItems(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	draft.SetCategory(1)
	draft.SetTemplate(10, 1)
	draft.AddLineItem(models.LineItem{ProductId: 5, Name: "Door", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)})

	draft.SetCategory(2)

	if draft.TemplateId != 0 || draft.TemplateCategoryId != 0 {
		t.Fatalf("expected template cleared, got template %d category %d", draft.TemplateId, draft.TemplateCategoryId)
	}
	if len(draft.LineItems) != 0 {
		t.Fatalf("expected line items cleared, got %d", len(draft.LineItems))
	}

	// Re-selecting the same category keeps everything.
	draft.SetTemplate(20, 2)
	draft.AddLineItem(models.LineItem{ProductId: 6, Name: "Window", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(60)})
	draft.SetCategory(2)
	if draft.TemplateId != 20 || len(draft.LineItems) != 1 {
		t.Fatalf("expected no-op for unchanged category")
	}
}

func TestApplyPricing_RequiresTypeForValues(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")

	discount := decimal.NewFromInt(10)
	err := draft.ApplyPricing(&models.PricingUpdate{Discount: &discount})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error for discount without type, got %v", err)
	}

	err = draft.ApplyPricing(&models.PricingUpdate{Discount: &discount, DiscountType: discountTypePtr(models.DiscountTypePercentage)})
	if err != nil {
		t.Fatalf("ApplyPricing: %v", err)
	}

	negative := decimal.NewFromInt(-1)
	err = draft.ApplyPricing(&models.PricingUpdate{TaxRate: &negative})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error for negative tax rate, got %v", err)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	draft.AddLineItem(models.LineItem{ProductId: 5, Name: "Door", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)})
	draft.Signature = &models.SignaturePayload{Data: "sig", Metadata: &models.SignatureMetadata{Timezone: "Asia/Yangon"}}

	clone := draft.Clone()

	draft.LineItems[0].Quantity = decimal.NewFromInt(9)
	draft.Signature.Metadata.Timezone = "UTC"

	if !clone.LineItems[0].Quantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("clone line items not independent")
	}
	if clone.Signature.Metadata.Timezone != "Asia/Yangon" {
		t.Fatalf("clone signature not independent")
	}
}

func TestHasIdentity(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")
	if draft.HasIdentity() {
		t.Fatalf("empty draft should have no identity")
	}

	draft.Contact.Name = "   "
	if draft.HasIdentity() {
		t.Fatalf("whitespace name should not identify a draft")
	}

	draft.Contact.Name = "Aye Chan"
	if !draft.HasIdentity() {
		t.Fatalf("inline name should identify a draft")
	}

	draft.Contact.Name = ""
	draft.Contact.ContactId = 7
	if !draft.HasIdentity() {
		t.Fatalf("contact reference should identify a draft")
	}
}
