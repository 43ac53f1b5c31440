package builder

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/quotes_backend/models"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type createSessionRequest struct {
	QuoteId *int `json:"quoteId"`
}

type transitionRequest struct {
	Action    string                   `json:"action" binding:"required"`
	Signature *models.SignaturePayload `json:"signature"`
}

// The UI speaks in actions; the lifecycle table speaks in statuses.
var transitionActions = map[string]models.QuoteStatus{
	"send":   models.QuoteStatusSent,
	"accept": models.QuoteStatusAccepted,
	"reject": models.QuoteStatusRejected,
	"revise": models.QuoteStatusRevised,
}

// CreateSessionHandler starts a drafting session. A quoteId in the body
// loads that quote for editing instead of starting blank.
func CreateSessionHandler(registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, companyId, ok := requireTenant(c)
		if !ok {
			return
		}

		var req createSessionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				writeBindError(c, err)
				return
			}
		}
		userId, _ := utils.GetUserIdFromContext(ctx)

		var session *Session
		if req.QuoteId != nil && *req.QuoteId > 0 {
			opened, err := registry.Open(ctx, companyId, userId, *req.QuoteId)
			if err != nil {
				writeSessionError(c, err)
				return
			}
			session = opened
		} else {
			session = registry.Create(companyId, userId)
		}

		c.JSON(http.StatusCreated, session.State())
	}
}

func GetSessionHandler(registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, companyId, ok := requireTenant(c)
		if !ok {
			return
		}
		session, ok := sessionFromPath(c, registry, companyId)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, session.State())
	}
}

// CloseSessionHandler is the unmount path. The draft is discarded from
// memory; the stored record survives.
func CloseSessionHandler(registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, companyId, ok := requireTenant(c)
		if !ok {
			return
		}
		if !registry.Remove(companyId, c.Param("id")) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func MutateSessionHandler(registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, companyId, ok := requireTenant(c)
		if !ok {
			return
		}
		session, ok := sessionFromPath(c, registry, companyId)
		if !ok {
			return
		}

		var update models.DraftUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			writeBindError(c, err)
			return
		}
		if err := session.Mutate(ctx, &update); err != nil {
			writeSessionError(c, err)
			return
		}
		c.JSON(http.StatusOK, session.State())
	}
}

func NextStepHandler(registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, companyId, ok := requireTenant(c)
		if !ok {
			return
		}
		session, ok := sessionFromPath(c, registry, companyId)
		if !ok {
			return
		}
		if err := session.GoToNextStep(); err != nil {
			writeSessionError(c, err)
			return
		}
		c.JSON(http.StatusOK, session.State())
	}
}

func PreviousStepHandler(registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, companyId, ok := requireTenant(c)
		if !ok {
			return
		}
		session, ok := sessionFromPath(c, registry, companyId)
		if !ok {
			return
		}
		if err := session.GoToPreviousStep(); err != nil {
			writeSessionError(c, err)
			return
		}
		c.JSON(http.StatusOK, session.State())
	}
}

func SubmitSessionHandler(registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, companyId, ok := requireTenant(c)
		if !ok {
			return
		}
		session, ok := sessionFromPath(c, registry, companyId)
		if !ok {
			return
		}
		if err := session.Submit(); err != nil {
			writeSessionError(c, err)
			return
		}
		c.JSON(http.StatusOK, session.State())
	}
}

func TransitionSessionHandler(registry *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, companyId, ok := requireTenant(c)
		if !ok {
			return
		}
		session, ok := sessionFromPath(c, registry, companyId)
		if !ok {
			return
		}

		var req transitionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		status, known := transitionActions[strings.ToLower(strings.TrimSpace(req.Action))]
		if !known {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + req.Action})
			return
		}

		if err := session.Transition(ctx, status, req.Signature); err != nil {
			writeSessionError(c, err)
			return
		}
		c.JSON(http.StatusOK, session.State())
	}
}

func requireTenant(c *gin.Context) (context.Context, string, bool) {
	ctx := c.Request.Context()
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || strings.TrimSpace(companyId) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "company id is required"})
		return nil, "", false
	}
	return ctx, companyId, true
}

func sessionFromPath(c *gin.Context, registry *Registry, companyId string) (*Session, bool) {
	session, ok := registry.Get(companyId, c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return session, true
}

func writeBindError(c *gin.Context, err error) {
	var bindErrs validator.ValidationErrors
	if errors.As(err, &bindErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func writeSessionError(c *gin.Context, err error) {
	var ve *utils.ValidationError
	switch {
	case errors.Is(err, ErrSessionClosed):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, models.ErrorQuoteNotEditable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case utils.IsLifecycleError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &ve):
		// Fields lets the UI point at the offending inputs.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Error(), "fields": ve.Fields})
	case utils.IsPersistenceError(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
