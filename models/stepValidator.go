package models

import (
	"strings"

	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/shopspring/decimal"
)

// ValidateStep checks the preconditions for leaving the given step.
// It returns a ValidationError naming the offending fields, or nil.
func ValidateStep(d *QuoteDraft, step WizardStep) error {
	fields := stepFieldErrors(d, step)
	if len(fields) > 0 {
		return utils.NewValidationError(fields...)
	}
	return nil
}

// ValidateDraft runs every step check, for submit.
func ValidateDraft(d *QuoteDraft) error {
	var fields []string
	for step := WizardStepContact; step < WizardStepCount; step++ {
		fields = append(fields, stepFieldErrors(d, step)...)
	}
	fields = utils.UniqueSlice(fields)
	if len(fields) > 0 {
		return utils.NewValidationError(fields...)
	}
	return nil
}

func stepFieldErrors(d *QuoteDraft, step WizardStep) []string {
	var fields []string

	switch step {
	case WizardStepContact:
		if d.Contact.ContactId <= 0 && strings.TrimSpace(d.Contact.Name) == "" {
			fields = append(fields, "contact")
		}
	case WizardStepTemplate:
		if d.CategoryId <= 0 {
			fields = append(fields, "category")
		}
		if d.TemplateId <= 0 {
			fields = append(fields, "template")
		} else if d.TemplateCategoryId != d.CategoryId {
			// A stale template from a previously selected category.
			fields = append(fields, "template")
		}
	case WizardStepProducts:
		if len(d.LineItems) == 0 {
			fields = append(fields, "lineItems")
		}
		for _, item := range d.LineItems {
			if item.Quantity.LessThanOrEqual(decimal.Zero) {
				fields = append(fields, "lineItems")
				break
			}
		}
	case WizardStepCalculations:
		if d.Pricing.Discount.IsNegative() {
			fields = append(fields, "discount")
		}
		if d.Pricing.Discount.GreaterThan(decimal.Zero) && d.Pricing.DiscountType == nil {
			fields = append(fields, "discountType")
		}
		if d.Pricing.TaxRate.IsNegative() {
			fields = append(fields, "taxRate")
		}
		if d.Pricing.DownPayment.IsNegative() {
			fields = append(fields, "downPayment")
		}
		if d.Pricing.DownPayment.GreaterThan(decimal.Zero) && d.Pricing.DownPaymentType == nil {
			fields = append(fields, "downPaymentType")
		}
	}

	return fields
}
