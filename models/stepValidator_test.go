package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/quotes_backend/models"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/shopspring/decimal"
)

func completeDraft() *models.QuoteDraft {
	draft := models.NewQuoteDraft("co-1")
	draft.Contact.Name = "Aye Chan"
	draft.SetCategory(1)
	draft.SetTemplate(10, 1)
	draft.AddLineItem(models.LineItem{ProductId: 5, Name: "Door", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(80)})
	draft.Pricing.TaxRate = decimal.NewFromInt(5)
	draft.ComputeSummary()
	return draft
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var ve *utils.ValidationError
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
	var ok bool
	ve, ok = err.(*utils.ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Fields
}

func TestValidateStep_Contact(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")

	fields := validationFields(t, models.ValidateStep(draft, models.WizardStepContact))
	if len(fields) != 1 || fields[0] != "contact" {
		t.Fatalf("expected [contact], got %v", fields)
	}

	draft.Contact.ContactId = 3
	if err := models.ValidateStep(draft, models.WizardStepContact); err != nil {
		t.Fatalf("contact reference should pass: %v", err)
	}
}

func TestValidateStep_Template(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")

	fields := validationFields(t, models.ValidateStep(draft, models.WizardStepTemplate))
	if len(fields) != 2 || fields[0] != "category" || fields[1] != "template" {
		t.Fatalf("expected [category template], got %v", fields)
	}

	draft.SetCategory(1)
	draft.SetTemplate(10, 2) // template belongs to another category
	fields = validationFields(t, models.ValidateStep(draft, models.WizardStepTemplate))
	if len(fields) != 1 || fields[0] != "template" {
		t.Fatalf("expected [template] for category mismatch, got %v", fields)
	}

	draft.SetTemplate(10, 1)
	if err := models.ValidateStep(draft, models.WizardStepTemplate); err != nil {
		t.Fatalf("matching template should pass: %v", err)
	}
}

func TestValidateStep_Products(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")

	fields := validationFields(t, models.ValidateStep(draft, models.WizardStepProducts))
	if len(fields) != 1 || fields[0] != "lineItems" {
		t.Fatalf("expected [lineItems], got %v", fields)
	}

	draft.AddLineItem(models.LineItem{ProductId: 5, Name: "Door", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)})
	if err := models.ValidateStep(draft, models.WizardStepProducts); err != nil {
		t.Fatalf("non-empty items should pass: %v", err)
	}
}

func TestValidateStep_Calculations(t *testing.T) {
	draft := completeDraft()
	draft.Pricing.DownPayment = decimal.NewFromInt(50)
	draft.Pricing.DownPaymentType = nil

	fields := validationFields(t, models.ValidateStep(draft, models.WizardStepCalculations))
	if len(fields) != 1 || fields[0] != "downPaymentType" {
		t.Fatalf("expected [downPaymentType], got %v", fields)
	}
}

func TestValidateDraft_CollectsAllFields(t *testing.T) {
	draft := models.NewQuoteDraft("co-1")

	fields := validationFields(t, models.ValidateDraft(draft))
	expected := []string{"contact", "category", "template", "lineItems"}
	if len(fields) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, fields)
	}
	for i, f := range expected {
		if fields[i] != f {
			t.Fatalf("expected %v, got %v", expected, fields)
		}
	}
}

func TestValidateDraft_CompleteDraftPasses(t *testing.T) {
	if err := models.ValidateDraft(completeDraft()); err != nil {
		t.Fatalf("complete draft should pass: %v", err)
	}
}
