package models

import (
	"encoding/json"
	"errors"
	"strconv"
)

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "DRAFT"
	QuoteStatusSent     QuoteStatus = "SENT"
	QuoteStatusAccepted QuoteStatus = "ACCEPTED"
	QuoteStatusRejected QuoteStatus = "REJECTED"
	QuoteStatusRevised  QuoteStatus = "REVISED"
)

func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusRevised:
		return true
	}
	return false
}

// convert enum to send response
func (s QuoteStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(s))), nil
}

// convert input to enum type
func (s *QuoteStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("quote status must be string")
	}

	quoteStatus := map[string]QuoteStatus{
		"DRAFT":    QuoteStatusDraft,
		"SENT":     QuoteStatusSent,
		"ACCEPTED": QuoteStatusAccepted,
		"REJECTED": QuoteStatusRejected,
		"REVISED":  QuoteStatusRevised,
	}

	var ok bool
	*s, ok = quoteStatus[str]
	if !ok {
		return errors.New("invalid quote status")
	}
	return nil
}

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

func (t DiscountType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *DiscountType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("discount type must be string")
	}
	switch str {
	case "PERCENTAGE":
		*t = DiscountTypePercentage
	case "FIXED":
		*t = DiscountTypeFixed
	default:
		return errors.New("invalid discount type")
	}
	return nil
}

type DownPaymentType string

const (
	DownPaymentTypePercentage DownPaymentType = "PERCENTAGE"
	DownPaymentTypeFixed      DownPaymentType = "FIXED"
)

func (t DownPaymentType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *DownPaymentType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("down payment type must be string")
	}
	switch str {
	case "PERCENTAGE":
		*t = DownPaymentTypePercentage
	case "FIXED":
		*t = DownPaymentTypeFixed
	default:
		return errors.New("invalid down payment type")
	}
	return nil
}

// WizardStep is the zero based index into the fixed drafting step sequence.
type WizardStep int

const (
	WizardStepContact WizardStep = iota
	WizardStepTemplate
	WizardStepProducts
	WizardStepCalculations
)

const WizardStepCount = 4

func (s WizardStep) String() string {
	switch s {
	case WizardStepContact:
		return "contact"
	case WizardStepTemplate:
		return "template"
	case WizardStepProducts:
		return "products"
	case WizardStepCalculations:
		return "calculations"
	default:
		return "unknown"
	}
}

func (s WizardStep) Valid() bool {
	return s >= WizardStepContact && s < WizardStepCount
}
