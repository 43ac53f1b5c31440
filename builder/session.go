package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/catalog"
	"bitbucket.org/mmdatafocus/quotes_backend/config"
	"bitbucket.org/mmdatafocus/quotes_backend/models"
	"bitbucket.org/mmdatafocus/quotes_backend/quotestore"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrSessionClosed = errors.New("builder session is closed")

// QuoteStore is the slice of the store client a session needs.
type QuoteStore interface {
	CreateQuote(ctx context.Context, payload *quotestore.QuotePayload) (*quotestore.QuoteResponse, error)
	UpdateQuote(ctx context.Context, quoteId int, payload *quotestore.QuotePayload) (*quotestore.QuoteResponse, error)
	GetQuote(ctx context.Context, quoteId int) (*quotestore.QuoteResponse, error)
	TransitionQuote(ctx context.Context, quoteId int, status models.QuoteStatus, signature *models.SignaturePayload) (*quotestore.QuoteResponse, error)
}

// Catalog is the slice of the catalog client a session needs.
type Catalog interface {
	ResolveProduct(ctx context.Context, categoryId int, productId int) (*catalog.ProductSnapshot, error)
	ResolveTemplate(ctx context.Context, categoryId int, templateId int) (*catalog.TemplateSnapshot, error)
}

// SessionState is the snapshot handed back after every session call.
// CurrentStepErrors previews the gate the next-step action will apply,
// so the UI can disable the button instead of collecting a 422.
type SessionState struct {
	SessionId         string             `json:"sessionId"`
	CurrentStep       models.WizardStep  `json:"currentStep"`
	CurrentStepName   string             `json:"currentStepName"`
	StepCount         int                `json:"stepCount"`
	CurrentStepValid  bool               `json:"currentStepValid"`
	CurrentStepErrors []string           `json:"currentStepErrors,omitempty"`
	AutosaveState     string             `json:"autosaveState"`
	Draft             *models.QuoteDraft `json:"draft"`
}

// Session owns one draft for the duration of an editing run. All calls
// serialize on the session lock; only the autosave dispatch and the
// lifecycle store calls leave the process. The draft acquires a server
// id on its first successful save and keeps it for the session's whole
// lifetime, every later save is an update against that id.
type Session struct {
	ID        string
	CompanyId string
	UserId    string

	store   QuoteStore
	catalog Catalog
	logger  *logrus.Logger
	saver   *AutosaveScheduler

	mu         sync.Mutex
	draft      *models.QuoteDraft
	closed     bool
	lastActive time.Time
}

func NewSession(companyId string, userId string, store QuoteStore, cat Catalog) *Session {
	return newSession(companyId, userId, store, cat, 0)
}

// OpenSession loads a stored quote into a fresh session for edit mode.
func OpenSession(ctx context.Context, companyId string, userId string, quoteId int, store QuoteStore, cat Catalog) (*Session, error) {
	resp, err := store.GetQuote(ctx, quoteId)
	if err != nil {
		return nil, err
	}
	s := newSession(companyId, userId, store, cat, 0)
	s.draft = resp.ToDraft(companyId)
	return s, nil
}

func newSession(companyId string, userId string, store QuoteStore, cat Catalog, debounce time.Duration) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		CompanyId:  companyId,
		UserId:     userId,
		store:      store,
		catalog:    cat,
		logger:     config.GetLogger(),
		draft:      models.NewQuoteDraft(companyId),
		lastActive: time.Now(),
	}
	s.saver = NewAutosaveScheduler(debounce, s.persistDraft)
	return s
}

// Mutate applies a partial update, recomputes the summary and notifies
// the autosave scheduler. The update lands on a clone first so a failed
// section leaves the draft exactly as it was.
func (s *Session) Mutate(ctx context.Context, update *models.DraftUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.touchLocked()
	if s.draft.Status != models.QuoteStatusDraft && s.draft.Status != models.QuoteStatusRevised {
		return models.ErrorQuoteNotEditable
	}

	next := s.draft.Clone()
	if err := s.applyUpdate(ctx, next, update); err != nil {
		return err
	}
	next.ComputeSummary()
	s.draft = next

	// Autosave waits until the draft carries something identifying.
	if next.HasIdentity() {
		s.saver.MarkDirty()
	}
	return nil
}

// GoToNextStep validates the current step, forces a synchronous save and
// then advances. An invalid step surfaces the offending fields without
// saving or moving; a failed save blocks the advance.
func (s *Session) GoToNextStep() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.touchLocked()
	if err := models.ValidateStep(s.draft, s.draft.CurrentStepIndex); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if err := s.saver.ForceSave(); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.closed && s.draft.CurrentStepIndex < models.WizardStepCount-1 {
		s.draft.CurrentStepIndex++
	}
	s.mu.Unlock()
	return nil
}

// GoToPreviousStep is always permitted and never saves.
func (s *Session) GoToPreviousStep() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.touchLocked()
	if s.draft.CurrentStepIndex > models.WizardStepContact {
		s.draft.CurrentStepIndex--
	}
	return nil
}

// Submit validates the whole draft and forces a save. Moving the quote
// out of DRAFT is a separate, explicit transition.
func (s *Session) Submit() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.touchLocked()
	if err := models.ValidateDraft(s.draft); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	return s.saver.ForceSave()
}

// Transition moves the quote through its lifecycle. The same rules the
// store enforces run here first so an illegal request never leaves the
// process. Sending additionally revalidates and saves the content, the
// record the counterparty receives must match what was on screen.
func (s *Session) Transition(ctx context.Context, to models.QuoteStatus, signature *models.SignaturePayload) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.touchLocked()
	if err := models.ValidateTransition(s.draft.Status, to, signature); err != nil {
		s.mu.Unlock()
		return err
	}
	if to == models.QuoteStatusSent {
		if err := models.ValidateDraft(s.draft); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	if to == models.QuoteStatusSent {
		if err := s.saver.ForceSave(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	serverId := s.draft.ServerId
	s.mu.Unlock()
	if serverId == 0 {
		return &utils.IdentityError{Reason: "lifecycle transition before the draft was ever persisted"}
	}

	resp, err := s.store.TransitionQuote(ctx, serverId, to, signature)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !s.closed {
		s.draft.Status = resp.Status
		s.draft.Signature = resp.Signature
	}
	s.mu.Unlock()
	return nil
}

// State returns a detached snapshot for the response payload.
func (s *Session) State() *SessionState {
	s.mu.Lock()
	draft := s.draft.Clone()
	s.mu.Unlock()

	state := &SessionState{
		SessionId:        s.ID,
		CurrentStep:      draft.CurrentStepIndex,
		CurrentStepName:  draft.CurrentStepIndex.String(),
		StepCount:        int(models.WizardStepCount),
		CurrentStepValid: true,
		AutosaveState:    s.saver.State(),
		Draft:            draft,
	}
	if err := models.ValidateStep(draft, draft.CurrentStepIndex); err != nil {
		state.CurrentStepValid = false
		var ve *utils.ValidationError
		if errors.As(err, &ve) {
			state.CurrentStepErrors = ve.Fields
		}
	}
	return state
}

// Close detaches the session. The pending debounce is cancelled, an
// in-flight save finishes but no longer touches the draft.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.saver.Close()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// touchLocked refreshes the idle-eviction clock. Callers hold mu.
func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

// applyUpdate maps every present section of the update onto the draft.
// Category first since it scopes templates and products, then the
// catalog-backed sections, then the pure ones.
func (s *Session) applyUpdate(ctx context.Context, d *models.QuoteDraft, update *models.DraftUpdate) error {
	if update.CategoryId != nil {
		if *update.CategoryId <= 0 {
			return utils.NewValidationError("categoryId")
		}
		d.SetCategory(*update.CategoryId)
	}

	if update.TemplateId != nil {
		if d.CategoryId <= 0 {
			return utils.NewValidationError("category")
		}
		tpl, err := s.catalog.ResolveTemplate(ctx, d.CategoryId, *update.TemplateId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return utils.NewValidationError("template")
			}
			return err
		}
		d.SetTemplate(tpl.ID, tpl.CategoryId)
	}

	if update.AddProduct != nil {
		if err := s.addProduct(ctx, d, update.AddProduct); err != nil {
			return err
		}
	}

	if update.SetQuantity != nil {
		if err := d.SetQuantity(update.SetQuantity.ProductId, update.SetQuantity.Quantity); err != nil {
			return err
		}
	}

	if update.RemoveProduct != nil {
		if err := d.RemoveLineItem(update.RemoveProduct.ProductId); err != nil {
			return err
		}
	}

	if update.Contact != nil {
		d.ApplyContact(update.Contact)
		s.checkContactDetails(update.Contact)
	}

	if update.Pricing != nil {
		if err := d.ApplyPricing(update.Pricing); err != nil {
			return err
		}
	}

	if update.Notes != nil {
		d.Notes = *update.Notes
	}
	return nil
}

// addProduct snapshots the catalog price at selection time. A later
// catalog edit never changes a line already on the draft.
func (s *Session) addProduct(ctx context.Context, d *models.QuoteDraft, input *models.AddProductInput) error {
	if d.CategoryId <= 0 {
		return utils.NewValidationError("category")
	}
	product, err := s.catalog.ResolveProduct(ctx, d.CategoryId, input.ProductId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return utils.NewValidationError("productId")
		}
		return err
	}

	variation := utils.DereferencePtr(input.VariationName)
	price, err := product.UnitPriceFor(variation)
	if err != nil {
		return utils.NewValidationError("variationName")
	}

	quantity := input.Quantity
	if quantity.IsNegative() {
		return utils.NewValidationError("quantity")
	}
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}

	d.AddLineItem(models.LineItem{
		ProductId:     product.ID,
		Name:          product.Name,
		VariationName: variation,
		Unit:          product.Unit,
		Quantity:      quantity,
		UnitPrice:     price,
	})
	return nil
}

// checkContactDetails warns on phone numbers libphonenumber rejects and
// on malformed emails. Drafts are never blocked on either, the contact
// may be foreign or incomplete.
func (s *Session) checkContactDetails(update *models.ContactUpdate) {
	if update.Phone != nil && strings.TrimSpace(*update.Phone) != "" {
		if err := utils.ValidatePhoneNumber(*update.Phone, config.DefaultPhoneRegion()); err != nil {
			s.logger.WithFields(logrus.Fields{
				"field":      "QuoteSession",
				"session_id": s.ID,
				"company_id": s.CompanyId,
			}).Warn("contact phone did not validate: " + fmt.Sprintf("%v", err))
		}
	}
	if update.Email != nil && strings.TrimSpace(*update.Email) != "" {
		if !utils.IsValidEmail(*update.Email) {
			s.logger.WithFields(logrus.Fields{
				"field":      "QuoteSession",
				"session_id": s.ID,
				"company_id": s.CompanyId,
			}).Warn("contact email did not validate")
		}
	}
}

// persistDraft is the autosave dispatch target. It snapshots the draft
// under the lock, talks to the store without it and applies the result
// afterward. Create versus update is decided by the snapshot's server
// id; the scheduler serializes saves so two creates can never overlap.
func (s *Session) persistDraft() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	draft := s.draft.Clone()
	s.mu.Unlock()

	if !draft.HasIdentity() {
		// Nothing identifying to persist yet.
		return nil
	}

	ctx := s.sessionContext()
	payload := quotestore.PayloadFromDraft(draft)

	var (
		resp *quotestore.QuoteResponse
		err  error
	)
	if draft.ServerId == 0 {
		resp, err = s.store.CreateQuote(ctx, payload)
	} else {
		resp, err = s.store.UpdateQuote(ctx, draft.ServerId, payload)
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"field":      "QuoteSession",
			"session_id": s.ID,
			"company_id": s.CompanyId,
			"server_id":  draft.ServerId,
		}).Warn("draft save failed: " + fmt.Sprintf("%v", err))
		return err
	}

	return s.applySaveResult(draft.ServerId == 0, resp)
}

func (s *Session) applySaveResult(wasCreate bool, resp *quotestore.QuoteResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// The record exists either way; the session just no longer cares.
		return nil
	}
	if wasCreate && s.draft.ServerId != 0 && s.draft.ServerId != resp.ID {
		err := &utils.IdentityError{
			Reason: fmt.Sprintf("create returned id %d for a draft already bound to %d", resp.ID, s.draft.ServerId),
		}
		s.logger.WithFields(logrus.Fields{
			"field":      "QuoteSession",
			"session_id": s.ID,
			"company_id": s.CompanyId,
		}).Error(err.Error())
		return err
	}
	if wasCreate {
		s.draft.ServerId = resp.ID
	}
	s.draft.QuoteNumber = resp.QuoteNumber
	savedAt := resp.UpdatedAt
	s.draft.LastSavedAt = &savedAt
	return nil
}

// sessionContext rebuilds the tenant context for saves dispatched off
// the request path. The session id doubles as the correlation id so
// every save of one editing run lines up in the logs.
func (s *Session) sessionContext() context.Context {
	ctx := utils.SetCompanyIdInContext(context.Background(), s.CompanyId)
	if s.UserId != "" {
		ctx = utils.SetUserIdInContext(ctx, s.UserId)
	}
	ctx = utils.SetSessionIdInContext(ctx, s.ID)
	return utils.SetCorrelationIdInContext(ctx, s.ID)
}
