package models

import (
	"strings"

	"bitbucket.org/mmdatafocus/quotes_backend/utils"
)

// quoteTransitions is the full set of legal status moves. Anything not
// listed here is rejected and leaves the status unchanged.
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusDraft:    {QuoteStatusSent},
	QuoteStatusSent:     {QuoteStatusAccepted, QuoteStatusRejected},
	QuoteStatusRejected: {QuoteStatusRevised},
	QuoteStatusRevised:  {QuoteStatusSent},
}

func CanTransition(from QuoteStatus, to QuoteStatus) bool {
	for _, allowed := range quoteTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition rejects illegal moves with a LifecycleError and
// enforces that acceptance always carries a signature. The signature and
// the status change are persisted together by the caller.
func ValidateTransition(from QuoteStatus, to QuoteStatus, signature *SignaturePayload) error {
	if !CanTransition(from, to) {
		return &utils.LifecycleError{From: string(from), To: string(to)}
	}
	if to == QuoteStatusAccepted {
		if signature == nil || strings.TrimSpace(signature.Data) == "" {
			return utils.NewValidationError("signature")
		}
	}
	return nil
}
