package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/precoperto/api/internal/domain"
	"github.com/precoperto/api/internal/platform/auth"
	"github.com/precoperto/api/internal/repositories"
	"github.com/precoperto/api/internal/services"
)

type stubOrderService struct {
	order      domain.Order
	confirmErr error
	lastInput  services.ConfirmOrderInput
	listCalls  []repositories.ListPage
	history    []domain.Order
}

func (s *stubOrderService) Confirm(_ context.Context, _ string, input services.ConfirmOrderInput) (domain.Order, error) {
	s.lastInput = input
	if s.confirmErr != nil {
		return domain.Order{}, s.confirmErr
	}
	return s.order, nil
}

func (s *stubOrderService) Get(_ context.Context, _, orderID string) (domain.Order, error) {
	for _, order := range s.history {
		if order.ID == orderID {
			return order, nil
		}
	}
	return domain.Order{}, &stubNotFoundError{}
}

func (s *stubOrderService) List(_ context.Context, _ string, page repositories.ListPage) ([]domain.Order, error) {
	s.listCalls = append(s.listCalls, page)
	if page.Limit > 0 && len(s.history) > page.Limit {
		return s.history[:page.Limit], nil
	}
	return s.history, nil
}

type stubNotFoundError struct{}

func (e *stubNotFoundError) Error() string       { return "not found" }
func (e *stubNotFoundError) IsNotFound() bool    { return true }
func (e *stubNotFoundError) IsConflict() bool    { return false }
func (e *stubNotFoundError) IsUnavailable() bool { return false }

func authenticatedRouter(register func(r chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	register(r)
	return r
}

const confirmBody = `{
	"cartId": "crt_1",
	"marketId": "node/10",
	"marketName": "Mercado Azul",
	"deliveryAddress": "Rua A, 1",
	"payment": {"method": "card", "card": {"holder": "Ana", "number": "4111111111111111", "expiry": "12/30", "cvv": "123"}}
}`

func TestOrdersHandlerConfirm(t *testing.T) {
	stub := &stubOrderService{order: domain.Order{ID: "ord_1", Total: 42.5}}
	router := authenticatedRouter(NewOrdersHandler(stub).Routes)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(confirmBody))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if stub.lastInput.CartID != "crt_1" || stub.lastInput.MarketID != "node/10" {
		t.Fatalf("unexpected confirm input: %+v", stub.lastInput)
	}
	if stub.lastInput.Instrument.Method != domain.PaymentMethodCard {
		t.Fatalf("expected card method, got %s", stub.lastInput.Instrument.Method)
	}

	var body domain.Order
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.ID != "ord_1" {
		t.Fatalf("expected order ord_1, got %s", body.ID)
	}
}

func TestOrdersHandlerConfirmErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "missing market", err: services.ErrMarketRequired, want: http.StatusBadRequest},
		{name: "cart already fulfilled", err: services.ErrCartFulfilled, want: http.StatusConflict},
		{name: "order not saved", err: services.ErrOrderNotSaved, want: http.StatusBadGateway},
		{name: "cart not found", err: &stubNotFoundError{}, want: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := authenticatedRouter(NewOrdersHandler(&stubOrderService{confirmErr: tc.err}).Routes)

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(confirmBody))
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestOrdersHandlerConfirmRequiresAuth(t *testing.T) {
	r := chi.NewRouter()
	NewOrdersHandler(&stubOrderService{}).Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(confirmBody))
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestOrdersHandlerListPagination(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	history := make([]domain.Order, 0, 3)
	for _, id := range []string{"ord_a", "ord_b", "ord_c"} {
		history = append(history, domain.Order{ID: id, CreatedAt: now})
	}
	stub := &stubOrderService{history: history}
	router := authenticatedRouter(NewOrdersHandler(stub).Routes)

	req := httptest.NewRequest(http.MethodGet, "/?pageSize=2", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body struct {
		Items         []domain.Order `json:"items"`
		NextPageToken string         `json:"nextPageToken"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(body.Items))
	}
	if body.NextPageToken == "" {
		t.Fatal("expected a next page token for a full page")
	}

	req = httptest.NewRequest(http.MethodGet, "/?pageSize=2&pageToken="+body.NextPageToken, nil)
	rr = httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for the second page, got %d", rr.Code)
	}
	if got := stub.listCalls[len(stub.listCalls)-1].StartAfter; got != "ord_b" {
		t.Fatalf("expected second page to start after ord_b, got %q", got)
	}
}

func TestOrdersHandlerListRejectsForeignToken(t *testing.T) {
	router := authenticatedRouter(NewOrdersHandler(&stubOrderService{}).Routes)

	req := httptest.NewRequest(http.MethodGet, "/?pageToken=not-a-token", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
