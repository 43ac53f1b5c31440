package quotestore

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/quotes_backend/catalog"
	"bitbucket.org/mmdatafocus/quotes_backend/models"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Handlers for the bundled quote store service. Catalog endpoints are
// global; quote endpoints require the company context set by the
// TenantMiddleware.

func ListCategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// first try redis cache
		cached, err := utils.RetrieveRedisList[catalog.CategorySnapshot]("")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}

		categories, err := models.GetCategories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]*catalog.CategorySnapshot, 0, len(categories))
		for _, category := range categories {
			items = append(items, &catalog.CategorySnapshot{
				ID:          category.ID,
				Name:        category.Name,
				Description: category.Description,
			})
		}

		// caching the result
		if err := utils.StoreRedisList[catalog.CategorySnapshot](items, ""); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func ListTemplatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categoryId := queryInt(c, "categoryId")

		// first try redis cache
		cached, err := utils.RetrieveRedisList[catalog.TemplateSnapshot](listScope(categoryId))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}

		templates, err := models.GetTemplates(c.Request.Context(), categoryId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]*catalog.TemplateSnapshot, 0, len(templates))
		for _, template := range templates {
			items = append(items, &catalog.TemplateSnapshot{
				ID:          template.ID,
				CategoryId:  template.CategoryId,
				Name:        template.Name,
				Description: template.Description,
			})
		}

		// caching the result
		if err := utils.StoreRedisList[catalog.TemplateSnapshot](items, listScope(categoryId)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func ListProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categoryId := queryInt(c, "categoryId")

		// first try redis cache
		cached, err := utils.RetrieveRedisList[catalog.ProductSnapshot](listScope(categoryId))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}

		products, err := models.GetProducts(c.Request.Context(), categoryId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]*catalog.ProductSnapshot, 0, len(products))
		for _, product := range products {
			snapshot, err := mapProductToSnapshot(product)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			items = append(items, snapshot)
		}

		// caching the result
		if err := utils.StoreRedisList[catalog.ProductSnapshot](items, listScope(categoryId)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func CreateQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireCompany(c)
		if !ok {
			return
		}

		var payload QuotePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			writeBindError(c, err)
			return
		}

		var quote models.Quote
		if err := ApplyPayloadToEntity(&payload, &quote); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content"})
			return
		}

		created, err := models.CreateQuote(ctx, &quote)
		if err != nil {
			writeQuoteError(c, err)
			return
		}

		resp, err := ResponseFromEntity(created)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// UpdateQuoteHandler serves both content saves and lifecycle transitions.
// A payload carrying a status is a transition; its content fields are ignored.
func UpdateQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireCompany(c)
		if !ok {
			return
		}

		quoteId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
			return
		}

		var payload QuotePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			writeBindError(c, err)
			return
		}

		var updated *models.Quote
		if payload.Status != "" {
			updated, err = models.TransitionQuoteStatus(ctx, quoteId, payload.Status, payload.Signature)
		} else {
			var quote models.Quote
			if err := ApplyPayloadToEntity(&payload, &quote); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content"})
				return
			}
			updated, err = models.UpdateQuoteContent(ctx, quoteId, &quote)
		}
		if err != nil {
			writeQuoteError(c, err)
			return
		}

		resp, err := ResponseFromEntity(updated)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func GetQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireCompany(c)
		if !ok {
			return
		}

		quoteId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
			return
		}

		quote, err := models.GetQuoteById(ctx, quoteId)
		if err != nil {
			writeQuoteError(c, err)
			return
		}

		resp, err := ResponseFromEntity(quote)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func ListQuotesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireCompany(c)
		if !ok {
			return
		}

		var status *models.QuoteStatus
		if v := strings.TrimSpace(c.Query("status")); v != "" {
			parsed := models.QuoteStatus(strings.ToUpper(v))
			if !parsed.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
				return
			}
			status = &parsed
		}

		quotes, err := models.ListQuotes(ctx, status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]*QuoteResponse, 0, len(quotes))
		for _, quote := range quotes {
			resp, err := ResponseFromEntity(quote)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			items = append(items, resp)
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// QuoteEventsHandler lists a quote's outbox history so support can see
// whether lifecycle events reached Pub/Sub.
func QuoteEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireCompany(c)
		if !ok {
			return
		}

		quoteId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
			return
		}

		statuses, err := models.GetQuoteEventStatuses(ctx, quoteId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": statuses})
	}
}

// ReprocessQuoteEventsHandler requeues a quote's failed outbox rows.
func ReprocessQuoteEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, ok := requireCompany(c)
		if !ok {
			return
		}

		quoteId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
			return
		}

		statuses, err := models.ReprocessQuoteEvents(ctx, quoteId)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no failed events"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": statuses})
	}
}

func requireCompany(c *gin.Context) (context.Context, bool) {
	ctx := c.Request.Context()
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || strings.TrimSpace(companyId) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "company id is required"})
		return nil, false
	}
	return ctx, true
}

func writeBindError(c *gin.Context, err error) {
	var bindErrs validator.ValidationErrors
	if errors.As(err, &bindErrs) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func writeQuoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, models.ErrorQuoteNotEditable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case utils.IsLifecycleError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case utils.IsValidationError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func queryInt(c *gin.Context, name string) *int {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// listScope keys a cached list by its category filter. Unfiltered
// lists share one entry.
func listScope(categoryId *int) string {
	if categoryId == nil {
		return ""
	}
	return strconv.Itoa(*categoryId)
}

func mapProductToSnapshot(product *models.Product) (*catalog.ProductSnapshot, error) {
	variations, err := product.Variations()
	if err != nil {
		return nil, err
	}

	snapshot := &catalog.ProductSnapshot{
		ID:         product.ID,
		CategoryId: product.CategoryId,
		Name:       product.Name,
		Unit:       product.Unit,
		BasePrice:  product.BasePrice,
	}
	for _, variation := range variations {
		snapshot.Variations = append(snapshot.Variations, catalog.VariationSnapshot{
			Name:  variation.Name,
			Price: variation.Price,
		})
	}
	return snapshot, nil
}
