package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatsurge/boxoffice/internal/app"
	"github.com/seatsurge/boxoffice/internal/clock"
	"github.com/seatsurge/boxoffice/internal/storage/postgres"
	"github.com/seatsurge/boxoffice/internal/testutil"
)

// Full checkout path against a real database: add to cart, convert to an
// order, replay the conversion, and run into the quota on a second cart.
func TestCheckout_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Now().UTC()
	cartSvc := app.NewCartService(postgres.NewCartRepository(pool), clock.NewFixed(now))
	orderSvc := app.NewOrderService(
		postgres.NewOrderRepository(pool),
		postgres.NewLockCoordinator(pool, 1000),
		clock.NewFixed(now),
		zap.NewNop(),
	)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	eventID, taxRuleID := testutil.SeedEvent(t, ctx, pool, "EUR", "19", true)
	productID := testutil.SeedProduct(t, ctx, pool, eventID, taxRuleID, "Ticket", "100.00")
	testutil.SeedQuota(t, ctx, pool, eventID, productID, 2)

	mux := http.NewServeMux()
	mux.Handle("/carts", HandleAddToCart(cartSvc))
	mux.Handle("/orders", HandleCreateOrder(orderSvc))

	addBody := []byte(`{"product_id":"` + productID + `","quantity":2}`)
	req := httptest.NewRequest(http.MethodPost, "/carts", bytes.NewBuffer(addBody))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var cart cartResponse
	if err := json.NewDecoder(rec.Body).Decode(&cart); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if cart.CartID == "" || len(cart.Positions) != 2 {
		t.Fatalf("unexpected cart: %+v", cart)
	}
	if cart.Positions[0].PriceGross != "100" {
		t.Fatalf("expected gross 100, got %s", cart.Positions[0].PriceGross)
	}

	orderBody := []byte(`{"cart_id":"` + cart.CartID + `"}`)
	orderReq := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(orderBody))
	orderReq.Header.Set("Idempotency-Key", "idem-checkout")
	orderRec := httptest.NewRecorder()
	mux.ServeHTTP(orderRec, orderReq)

	if orderRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", orderRec.Code, orderRec.Body.String())
	}
	var order orderResponse
	if err := json.NewDecoder(orderRec.Body).Decode(&order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.TotalGross != "200" {
		t.Fatalf("expected total 200, got %s", order.TotalGross)
	}
	if len(order.Positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(order.Positions))
	}

	// Replay with the same key returns the stored order without new rows.
	replayReq := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(orderBody))
	replayReq.Header.Set("Idempotency-Key", "idem-checkout")
	replayRec := httptest.NewRecorder()
	mux.ServeHTTP(replayRec, replayReq)

	if replayRec.Code != http.StatusOK {
		t.Fatalf("expected status 200 on replay, got %d", replayRec.Code)
	}
	var replayed orderResponse
	if err := json.NewDecoder(replayRec.Body).Decode(&replayed); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if replayed.ID != order.ID {
		t.Fatal("expected same order id on replay")
	}

	var orderCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 1 {
		t.Fatalf("expected 1 order, got %d", orderCount)
	}

	var converted int
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cart_positions WHERE cart_id = $1 AND status = 'converted'`,
		cart.CartID,
	).Scan(&converted); err != nil {
		t.Fatalf("count converted: %v", err)
	}
	if converted != 2 {
		t.Fatalf("expected 2 converted positions, got %d", converted)
	}

	// The quota of 2 is now fully confirmed; a new cart gets nothing.
	soldOutReq := httptest.NewRequest(http.MethodPost, "/carts", bytes.NewBuffer([]byte(`{"product_id":"`+productID+`","quantity":1}`)))
	soldOutRec := httptest.NewRecorder()
	mux.ServeHTTP(soldOutRec, soldOutReq)

	if soldOutRec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 when sold out, got %d: %s", soldOutRec.Code, soldOutRec.Body.String())
	}
}

// Several carts race to convert against a quota of one, through the real
// advisory lock coordinator. Exactly one conversion may win.
func TestCreateOrder_OneWinnerUnderContention(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Now().UTC()
	orderSvc := app.NewOrderService(
		postgres.NewOrderRepository(pool),
		postgres.NewLockCoordinator(pool, 5000),
		clock.NewFixed(now),
		zap.NewNop(),
	)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	eventID, taxRuleID := testutil.SeedEvent(t, ctx, pool, "EUR", "19", true)
	productID := testutil.SeedProduct(t, ctx, pool, eventID, taxRuleID, "Ticket", "100.00")
	testutil.SeedQuota(t, ctx, pool, eventID, productID, 1)

	const contenders = 4
	cartIDs := make([]string, contenders)
	for i := range cartIDs {
		cartIDs[i] = uuid.NewString()
		_, err := pool.Exec(ctx, `
INSERT INTO cart_positions (id, cart_id, event_id, product_id,
	listed_price, price_after_voucher, tax_rate, line_price_gross, line_price_net,
	status, expires_at, created_at)
VALUES ($1, $2, $3, $4, 100.00, 100.00, 19, 100.00, 84.03, 'active', $5, $6)`,
			uuid.NewString(), cartIDs[i], eventID, productID, now.Add(30*time.Minute), now)
		if err != nil {
			t.Fatalf("seed cart position: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/orders", HandleCreateOrder(orderSvc))

	results := make(chan *httptest.ResponseRecorder, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := []byte(`{"cart_id":"` + cartIDs[i] + `"}`)
			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
			req.Header.Set("Idempotency-Key", "contender-"+cartIDs[i])
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			results <- rec
		}(i)
	}
	wg.Wait()
	close(results)

	won, lost := 0, 0
	for rec := range results {
		switch rec.Code {
		case http.StatusCreated:
			won++
		case http.StatusConflict:
			lost++
			var errResp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode conflict: %v", err)
			}
			if errResp.Code != codeQuotaExceeded {
				t.Fatalf("expected error code %s, got %s", codeQuotaExceeded, errResp.Code)
			}
		default:
			t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
		}
	}
	if won != 1 || lost != contenders-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d/%d", contenders-1, won, lost)
	}

	var orderCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 1 {
		t.Fatalf("expected 1 order, got %d", orderCount)
	}
}

// Voucher flow over HTTP: discounted add, voucher removal restores the
// frozen listed price.
func TestVoucher_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Now().UTC()
	cartSvc := app.NewCartService(postgres.NewCartRepository(pool), clock.NewFixed(now))

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	eventID, taxRuleID := testutil.SeedEvent(t, ctx, pool, "EUR", "19", true)
	productID := testutil.SeedProduct(t, ctx, pool, eventID, taxRuleID, "Ticket", "100.00")
	testutil.SeedQuota(t, ctx, pool, eventID, productID, 10)
	testutil.SeedVoucher(t, ctx, pool, eventID, "SAVE20", 5, "percent", "20")

	mux := http.NewServeMux()
	mux.Handle("/carts", HandleAddToCart(cartSvc))
	mux.Handle("/carts/", HandleCartActions(cartSvc))

	addBody := []byte(`{"product_id":"` + productID + `","quantity":1,"voucher_code":"SAVE20"}`)
	req := httptest.NewRequest(http.MethodPost, "/carts", bytes.NewBuffer(addBody))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var cart cartResponse
	if err := json.NewDecoder(rec.Body).Decode(&cart); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if cart.Positions[0].PriceGross != "80" {
		t.Fatalf("expected discounted gross 80, got %s", cart.Positions[0].PriceGross)
	}
	if cart.Positions[0].ListedPrice != "100" {
		t.Fatalf("expected frozen listed price 100, got %s", cart.Positions[0].ListedPrice)
	}

	removeReq := httptest.NewRequest(http.MethodDelete, "/carts/"+cart.CartID+"/voucher", nil)
	removeRec := httptest.NewRecorder()
	mux.ServeHTTP(removeRec, removeReq)

	if removeRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", removeRec.Code, removeRec.Body.String())
	}
	var restored cartResponse
	if err := json.NewDecoder(removeRec.Body).Decode(&restored); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if restored.Positions[0].PriceGross != "100" {
		t.Fatalf("expected restored gross 100, got %s", restored.Positions[0].PriceGross)
	}
}
