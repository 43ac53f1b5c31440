package quotestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/mmdatafocus/quotes_backend/models"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/shopspring/decimal"
)

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		baseURL: server.URL,
		apiKey:  "test-key",
		http:    server.Client(),
	}
}

func testContext() context.Context {
	ctx := utils.SetCompanyIdInContext(context.Background(), "company-1")
	return utils.SetUserIdInContext(ctx, "user-9")
}

func sampleDraft() *models.QuoteDraft {
	draft := models.NewQuoteDraft("company-1")
	draft.Contact.Name = "Aye Chan"
	draft.CategoryId = 2
	draft.TemplateId = 10
	draft.TemplateCategoryId = 2
	draft.AddLineItem(models.LineItem{
		ProductId: 7,
		Name:      "Lawn turf",
		Unit:      "sqm",
		Quantity:  decimal.NewFromInt(2),
		UnitPrice: decimal.NewFromInt(100),
	})
	draft.ComputeSummary()
	return draft
}

func TestCreateQuoteSendsHeadersAndDecodes(t *testing.T) {
	var gotCompany, gotUser, gotAPIKey string
	var gotPayload QuotePayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/quotes" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotCompany = r.Header.Get("X-Company-Id")
		gotUser = r.Header.Get("X-User-Id")
		gotAPIKey = r.Header.Get("X-Api-Key")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":42,"quoteNumber":"QT-1","status":"DRAFT","currentStepIndex":0,
			"contact":{"name":"Aye Chan"},"content":{"products":[],"pricing":{}}}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.CreateQuote(testContext(), PayloadFromDraft(sampleDraft()))
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}

	if gotCompany != "company-1" || gotUser != "user-9" || gotAPIKey != "test-key" {
		t.Fatalf("missing identity headers: company=%q user=%q apiKey=%q", gotCompany, gotUser, gotAPIKey)
	}
	if gotPayload.Contact.Name != "Aye Chan" || len(gotPayload.Content.Products) != 1 {
		t.Fatalf("unexpected payload: %+v", gotPayload)
	}
	if gotPayload.Content.Summary.Subtotal.String() != "200" {
		t.Fatalf("expected subtotal 200 got %s", gotPayload.Content.Summary.Subtotal.String())
	}
	if result.ID != 42 || result.QuoteNumber != "QT-1" || result.Status != models.QuoteStatusDraft {
		t.Fatalf("unexpected response: %+v", result)
	}
}

func TestTransitionQuoteSendsStatusOnly(t *testing.T) {
	var rawBody map[string]json.RawMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &rawBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"id":42,"quoteNumber":"QT-1","status":"SENT","currentStepIndex":3,
			"contact":{"name":"Aye Chan"},"content":{"products":[],"pricing":{}}}`)
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.TransitionQuote(testContext(), 42, models.QuoteStatusSent, nil)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if result.Status != models.QuoteStatusSent {
		t.Fatalf("expected SENT got %s", result.Status)
	}

	if string(rawBody["status"]) != `"SENT"` {
		t.Fatalf("expected status SENT in body, got %s", rawBody["status"])
	}
	if _, present := rawBody["signature"]; present {
		t.Fatal("nil signature must be omitted")
	}
}

func TestServerErrorBecomesPersistenceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.UpdateQuote(testContext(), 42, PayloadFromDraft(sampleDraft()))
	if !utils.IsPersistenceError(err) {
		t.Fatalf("expected persistence error, got %v", err)
	}

	var pe *utils.PersistenceError
	errors.As(err, &pe)
	if pe.StatusCode != http.StatusInternalServerError || pe.Op != "update" {
		t.Fatalf("unexpected persistence error: %+v", pe)
	}
	if !pe.Retryable() {
		t.Fatal("persistence errors must be retryable")
	}
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.GetQuote(testContext(), 404)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestUnreachableStoreIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := &Client{baseURL: server.URL, http: http.DefaultClient}
	_, err := client.GetQuote(testContext(), 1)
	if !utils.IsPersistenceError(err) {
		t.Fatalf("expected persistence error, got %v", err)
	}

	var pe *utils.PersistenceError
	errors.As(err, &pe)
	if pe.Err == nil {
		t.Fatal("transport failure should wrap the underlying error")
	}
}

func TestDraftSurvivesStoreRoundTrip(t *testing.T) {
	draft := sampleDraft()
	discountType := models.DiscountTypePercentage
	draft.Pricing.Discount = decimal.NewFromInt(10)
	draft.Pricing.DiscountType = &discountType
	draft.Pricing.TaxRate = decimal.NewFromInt(8)
	draft.ComputeSummary()

	payload := PayloadFromDraft(draft)

	var entity models.Quote
	if err := ApplyPayloadToEntity(payload, &entity); err != nil {
		t.Fatalf("apply payload: %v", err)
	}
	entity.ID = 42
	entity.QuoteNumber = "QT-1"
	entity.Status = models.QuoteStatusDraft

	resp, err := ResponseFromEntity(&entity)
	if err != nil {
		t.Fatalf("response from entity: %v", err)
	}

	restored := resp.ToDraft("company-1")
	if restored.ServerId != 42 || restored.QuoteNumber != "QT-1" {
		t.Fatalf("identity lost: %+v", restored)
	}
	if restored.TemplateCategoryId != 2 {
		t.Fatalf("template category lost: %d", restored.TemplateCategoryId)
	}
	if len(restored.LineItems) != 1 || restored.LineItems[0].ProductId != 7 {
		t.Fatalf("line items lost: %+v", restored.LineItems)
	}
	if restored.Pricing.DiscountType == nil || *restored.Pricing.DiscountType != models.DiscountTypePercentage {
		t.Fatalf("pricing lost: %+v", restored.Pricing)
	}
	// 200 - 20 discount = 180, +8% tax = 194.4
	if restored.Summary.Total.String() != "194.4" {
		t.Fatalf("expected total 194.4 got %s", restored.Summary.Total.String())
	}
	if restored.LastSavedAt == nil {
		t.Fatal("expected lastSavedAt from store timestamp")
	}
}
