package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/quotes_backend/models"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
)

func TestValidateTransition_LegalMoves(t *testing.T) {
	signature := &models.SignaturePayload{Data: "base64-strokes"}

	cases := []struct {
		from models.QuoteStatus
		to   models.QuoteStatus
	}{
		{models.QuoteStatusDraft, models.QuoteStatusSent},
		{models.QuoteStatusSent, models.QuoteStatusAccepted},
		{models.QuoteStatusSent, models.QuoteStatusRejected},
		{models.QuoteStatusRejected, models.QuoteStatusRevised},
		{models.QuoteStatusRevised, models.QuoteStatusSent},
	}
	for _, tc := range cases {
		if err := models.ValidateTransition(tc.from, tc.to, signature); err != nil {
			t.Fatalf("%s -> %s should be legal: %v", tc.from, tc.to, err)
		}
	}
}

func TestValidateTransition_IllegalMoves(t *testing.T) {
	signature := &models.SignaturePayload{Data: "base64-strokes"}

	cases := []struct {
		from models.QuoteStatus
		to   models.QuoteStatus
	}{
		{models.QuoteStatusDraft, models.QuoteStatusAccepted},
		{models.QuoteStatusDraft, models.QuoteStatusRejected},
		{models.QuoteStatusSent, models.QuoteStatusDraft},
		{models.QuoteStatusSent, models.QuoteStatusRevised},
		{models.QuoteStatusAccepted, models.QuoteStatusSent},
		{models.QuoteStatusAccepted, models.QuoteStatusRejected},
		{models.QuoteStatusRejected, models.QuoteStatusSent},
		{models.QuoteStatusRejected, models.QuoteStatusAccepted},
		{models.QuoteStatusRevised, models.QuoteStatusAccepted},
		{models.QuoteStatusRevised, models.QuoteStatusRejected},
	}
	for _, tc := range cases {
		err := models.ValidateTransition(tc.from, tc.to, signature)
		if !utils.IsLifecycleError(err) {
			t.Fatalf("%s -> %s expected lifecycle error, got %v", tc.from, tc.to, err)
		}
	}
}

func TestValidateTransition_AcceptRequiresSignature(t *testing.T) {
	err := models.ValidateTransition(models.QuoteStatusSent, models.QuoteStatusAccepted, nil)
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error for missing signature, got %v", err)
	}

	err = models.ValidateTransition(models.QuoteStatusSent, models.QuoteStatusAccepted, &models.SignaturePayload{Data: "  "})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error for blank signature data, got %v", err)
	}

	// Rejection never needs a signature.
	if err := models.ValidateTransition(models.QuoteStatusSent, models.QuoteStatusRejected, nil); err != nil {
		t.Fatalf("rejection should not require a signature: %v", err)
	}
}
