package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seatsurge/boxoffice/internal/app"
	"github.com/seatsurge/boxoffice/internal/clock"
	"github.com/seatsurge/boxoffice/internal/storage/postgres"
	"github.com/seatsurge/boxoffice/internal/testutil"
)

func TestAdminEvents_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	repo := postgres.NewAdminRepository(pool)
	svc := app.NewAdminService(repo, clock.NewFixed(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	handler := HandleAdminEvents(svc)

	reqBody := []byte(`{"name":"Summer Festival","currency":"EUR","starts_at":"2026-07-01T18:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/events", bytes.NewBuffer(reqBody))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created eventResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" || created.Currency != "EUR" {
		t.Fatalf("unexpected event: %+v", created)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/admin/events", nil)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, listReq)

	if listRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", listRec.Code)
	}

	var events []eventResponse
	if err := json.NewDecoder(listRec.Body).Decode(&events); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}

func TestAdminEventResources_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	repo := postgres.NewAdminRepository(pool)
	svc := app.NewAdminService(repo, clock.NewFixed(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	eventID, taxRuleID := testutil.SeedEvent(t, ctx, pool, "EUR", "19", true)

	resources := HandleAdminEventResources(svc)

	productBody := []byte(`{"name":"Ticket","default_price":"100.00","admission":true,"tax_rule_id":"` + taxRuleID + `"}`)
	productReq := httptest.NewRequest(http.MethodPost, "/admin/events/"+eventID+"/products", bytes.NewBuffer(productBody))
	productRec := httptest.NewRecorder()
	resources.ServeHTTP(productRec, productReq)

	if productRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", productRec.Code, productRec.Body.String())
	}
	var product productResponse
	if err := json.NewDecoder(productRec.Body).Decode(&product); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if product.EventID != eventID || product.DefaultPrice != "100" {
		t.Fatalf("unexpected product: %+v", product)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/admin/events/"+eventID+"/products", nil)
	listRec := httptest.NewRecorder()
	resources.ServeHTTP(listRec, listReq)

	if listRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", listRec.Code)
	}
	var products []productResponse
	if err := json.NewDecoder(listRec.Body).Decode(&products); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}

	quotaBody := []byte(`{"name":"GA","size":50,"close_when_sold_out":true,"members":[{"product_id":"` + product.ID + `"}]}`)
	quotaReq := httptest.NewRequest(http.MethodPost, "/admin/events/"+eventID+"/quotas", bytes.NewBuffer(quotaBody))
	quotaRec := httptest.NewRecorder()
	resources.ServeHTTP(quotaRec, quotaReq)

	if quotaRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", quotaRec.Code, quotaRec.Body.String())
	}
	var quota quotaResponse
	if err := json.NewDecoder(quotaRec.Body).Decode(&quota); err != nil {
		t.Fatalf("decode quota: %v", err)
	}
	if quota.Size == nil || *quota.Size != 50 || !quota.CloseWhenSoldOut {
		t.Fatalf("unexpected quota: %+v", quota)
	}

	if _, err := pool.Exec(ctx, `UPDATE quotas SET closed = TRUE WHERE id = $1`, quota.ID); err != nil {
		t.Fatalf("close quota: %v", err)
	}
	reopenReq := httptest.NewRequest(http.MethodPost, "/admin/quotas/"+quota.ID+"/reopen", nil)
	reopenRec := httptest.NewRecorder()
	HandleAdminQuotaReopen(svc).ServeHTTP(reopenRec, reopenReq)

	if reopenRec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", reopenRec.Code, reopenRec.Body.String())
	}
	var closed bool
	if err := pool.QueryRow(ctx, `SELECT closed FROM quotas WHERE id = $1`, quota.ID).Scan(&closed); err != nil {
		t.Fatalf("read quota: %v", err)
	}
	if closed {
		t.Fatal("expected quota reopened")
	}

	voucherBody := []byte(`{"code":"SAVE20","max_usages":5,"price_mode":"percent","value":"20"}`)
	voucherReq := httptest.NewRequest(http.MethodPost, "/admin/events/"+eventID+"/vouchers", bytes.NewBuffer(voucherBody))
	voucherRec := httptest.NewRecorder()
	resources.ServeHTTP(voucherRec, voucherReq)

	if voucherRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", voucherRec.Code, voucherRec.Body.String())
	}
	var voucher voucherResponse
	if err := json.NewDecoder(voucherRec.Body).Decode(&voucher); err != nil {
		t.Fatalf("decode voucher: %v", err)
	}
	if voucher.Code != "SAVE20" || voucher.MaxUsages != 5 {
		t.Fatalf("unexpected voucher: %+v", voucher)
	}

	// Duplicate codes are rejected per event.
	dupRec := httptest.NewRecorder()
	dupReq := httptest.NewRequest(http.MethodPost, "/admin/events/"+eventID+"/vouchers", bytes.NewBuffer(voucherBody))
	resources.ServeHTTP(dupRec, dupReq)

	if dupRec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", dupRec.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(dupRec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeVoucherInvalid {
		t.Fatalf("expected error code %s, got %s", codeVoucherInvalid, errResp.Code)
	}

	discountBody := []byte(`{"condition_kind":"min_count","min_count":3,"benefit_percent":"20","only_cheapest_n":1}`)
	discountReq := httptest.NewRequest(http.MethodPost, "/admin/events/"+eventID+"/discounts", bytes.NewBuffer(discountBody))
	discountRec := httptest.NewRecorder()
	resources.ServeHTTP(discountRec, discountReq)

	if discountRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", discountRec.Code, discountRec.Body.String())
	}
	var discount discountResponse
	if err := json.NewDecoder(discountRec.Body).Decode(&discount); err != nil {
		t.Fatalf("decode discount: %v", err)
	}
	if discount.EventID != eventID {
		t.Fatalf("unexpected discount: %+v", discount)
	}

	subeventBody := []byte(`{"name":"Day 1","starts_at":"2026-07-01T18:00:00Z"}`)
	subeventReq := httptest.NewRequest(http.MethodPost, "/admin/events/"+eventID+"/subevents", bytes.NewBuffer(subeventBody))
	subeventRec := httptest.NewRecorder()
	resources.ServeHTTP(subeventRec, subeventReq)

	if subeventRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", subeventRec.Code, subeventRec.Body.String())
	}
	var subevent subeventResponse
	if err := json.NewDecoder(subeventRec.Body).Decode(&subevent); err != nil {
		t.Fatalf("decode subevent: %v", err)
	}

	variationBody := []byte(`{"name":"VIP","price":"150.00"}`)
	variationReq := httptest.NewRequest(http.MethodPost, "/admin/products/"+product.ID+"/variations", bytes.NewBuffer(variationBody))
	variationRec := httptest.NewRecorder()
	HandleAdminProductVariations(svc).ServeHTTP(variationRec, variationReq)

	if variationRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", variationRec.Code, variationRec.Body.String())
	}
	var variation variationResponse
	if err := json.NewDecoder(variationRec.Body).Decode(&variation); err != nil {
		t.Fatalf("decode variation: %v", err)
	}
	if variation.Price != "150" || !variation.Active {
		t.Fatalf("unexpected variation: %+v", variation)
	}

	overrideBody := []byte(`{"product_id":"` + product.ID + `","variation_id":"` + variation.ID + `","price":"90.00"}`)
	overrideReq := httptest.NewRequest(http.MethodPost, "/admin/subevents/"+subevent.ID+"/date-overrides", bytes.NewBuffer(overrideBody))
	overrideRec := httptest.NewRecorder()
	HandleAdminDateOverrides(svc).ServeHTTP(overrideRec, overrideReq)

	if overrideRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", overrideRec.Code, overrideRec.Body.String())
	}
	var override dateOverrideResponse
	if err := json.NewDecoder(overrideRec.Body).Decode(&override); err != nil {
		t.Fatalf("decode override: %v", err)
	}
	if override.SubeventID != subevent.ID || override.Price != "90" {
		t.Fatalf("unexpected override: %+v", override)
	}

	badReq := httptest.NewRequest(http.MethodGet, "/admin/events/"+eventID+"/unknown", nil)
	badRec := httptest.NewRecorder()
	resources.ServeHTTP(badRec, badReq)

	if badRec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", badRec.Code)
	}
}
