package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/pagination"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/services"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/storage"
)

func setupOrderRouter(handler *OrderHandler) *gin.Engine {
	r := gin.New()
	r.POST("/orders/submit", handler.SubmitOrder)
	r.POST("/user/orders/submit", injectUserID("user-1"), handler.SubmitOrder)
	r.GET("/orders/latest_order", injectUserID("user-1"), handler.GetLatestOrder)
	r.GET("/orders/pending", handler.GetPendingOrder)
	r.GET("/orders/:order_id", handler.GetOrder)
	r.PATCH("/orders/:order_id/status", handler.UpdateStatusFromBot)

	admin := r.Group("/admin", injectAdmin("root"))
	admin.GET("/orders", handler.ListOrders)
	admin.PATCH("/orders/:order_id/status", handler.UpdateStatus)
	admin.POST("/orders/:order_id/settle", handler.Settle)
	admin.POST("/orders/:order_id/confirm-receipt", handler.AttachConfirmReceipt)
	admin.DELETE("/orders/:order_id", handler.DeleteOrder)
	return r
}

func TestOrderHandler_SubmitOrder(t *testing.T) {
	t.Run("stores receipts and returns order id", func(t *testing.T) {
		var got services.OrderInput
		orders := &mockOrderService{
			createOrderFn: func(input services.OrderInput) (*models.Order, error) {
				got = input
				return &models.Order{Code: "191025A0001B", Type: models.OrderType(input.Type)}, nil
			},
		}
		store := &memStore{}
		r := setupOrderRouter(NewOrderHandler(orders, &mockSettlementService{}, store))

		rec := doMultipart(t, r, "/orders/submit", map[string]string{
			"order_type":  "buy",
			"amount":      "1000",
			"price":       "0.0125",
			"chat_id":     "555",
			"telegram_id": "777",
		}, formFile{"receipt", "r1.jpg", "one"}, formFile{"receipt", "r2.jpg", "two"})

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		body := parseJSON(t, rec)
		if body["order_id"] != "191025A0001B" {
			t.Errorf("unexpected order_id %v", body["order_id"])
		}
		if got.ChatID == nil || *got.ChatID != 555 {
			t.Errorf("expected chat id 555, got %v", got.ChatID)
		}
		if got.UserID != "" {
			t.Errorf("expected anonymous submission, got user %q", got.UserID)
		}
		if len(got.Receipts) != 2 || got.Receipts[0] != "/uploads/receipts/r1.jpg" {
			t.Errorf("unexpected receipts %v", got.Receipts)
		}
		if store.files["/uploads/receipts/r2.jpg"] != "two" {
			t.Errorf("receipt content not stored")
		}
	})

	t.Run("links authenticated user and uploaded qr", func(t *testing.T) {
		var got services.OrderInput
		orders := &mockOrderService{
			createOrderFn: func(input services.OrderInput) (*models.Order, error) {
				got = input
				return &models.Order{Code: "191025A0002S"}, nil
			},
		}
		r := setupOrderRouter(NewOrderHandler(orders, &mockSettlementService{}, &memStore{}))

		rec := doMultipart(t, r, "/user/orders/submit", map[string]string{
			"order_type": "sell",
			"amount":     "50",
			"price":      "80",
		}, formFile{"qr", "code.png", "qr"})

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if got.UserID != "user-1" {
			t.Errorf("expected user-1, got %q", got.UserID)
		}
		if got.QR != "/uploads/qr/code.png" {
			t.Errorf("unexpected qr %q", got.QR)
		}
	})

	t.Run("rejects non-numeric chat id", func(t *testing.T) {
		r := setupOrderRouter(NewOrderHandler(&mockOrderService{}, &mockSettlementService{}, &memStore{}))
		rec := doMultipart(t, r, "/orders/submit", map[string]string{"chat_id": "abc"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("rejects invalid fields before saving uploads", func(t *testing.T) {
		root := t.TempDir()
		store := storage.NewLocalStore(root, "/static/uploads")
		called := false
		orders := &mockOrderService{
			createOrderFn: func(services.OrderInput) (*models.Order, error) {
				called = true
				return &models.Order{Code: "X"}, nil
			},
		}
		r := setupOrderRouter(NewOrderHandler(orders, &mockSettlementService{}, store))

		for _, fields := range []map[string]string{
			{"order_type": "buy", "price": "1"},
			{"order_type": "buy", "amount": "-1", "price": "1"},
			{"order_type": "swap", "amount": "1", "price": "1"},
		} {
			rec := doMultipart(t, r, "/orders/submit", fields,
				formFile{"receipt", "r1.jpg", "one"}, formFile{"qr", "code.png", "qr"})
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 for %v, got %d", fields, rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		}
		if called {
			t.Error("service must not be called for invalid fields")
		}
		if files := filesUnder(t, root); len(files) != 0 {
			t.Errorf("rejected submissions left uploads behind: %v", files)
		}
	})

	t.Run("discards uploads when the order is rejected", func(t *testing.T) {
		root := t.TempDir()
		store := storage.NewLocalStore(root, "/static/uploads")
		orders := &mockOrderService{
			createOrderFn: func(input services.OrderInput) (*models.Order, error) {
				if len(input.Receipts) != 2 || input.QR == "" {
					t.Errorf("expected saved uploads to reach the service, got %+v", input)
				}
				return nil, apperrors.ErrBankAccountNotFound
			},
		}
		r := setupOrderRouter(NewOrderHandler(orders, &mockSettlementService{}, store))

		rec := doMultipart(t, r, "/orders/submit", map[string]string{
			"order_type":           "buy",
			"amount":               "1000",
			"price":                "0.0125",
			"thai_bank_account_id": "missing",
		}, formFile{"receipt", "r1.jpg", "one"}, formFile{"receipt", "r2.jpg", "two"}, formFile{"qr", "code.png", "qr"})

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
		}
		if files := filesUnder(t, root); len(files) != 0 {
			t.Errorf("rejected submission left uploads behind: %v", files)
		}
	})
}

func TestOrderHandler_ConfirmReceiptDiscardsOnConflict(t *testing.T) {
	orders := &mockOrderService{
		attachConfirmReceiptFn: func(code string, paths []string, actor string) (*models.Order, error) {
			return nil, apperrors.ErrReceiptAlreadyAttached
		},
	}
	store := &memStore{}
	r := setupOrderRouter(NewOrderHandler(orders, &mockSettlementService{}, store))

	rec := doMultipart(t, r, "/admin/orders/A1/confirm-receipt", nil, formFile{"confirm_receipt", "proof.jpg", "p"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if len(store.files) != 0 || len(store.deleted) != 1 {
		t.Errorf("expected the upload to be discarded, files=%v deleted=%v", store.files, store.deleted)
	}
}

func TestOrderHandler_Lookups(t *testing.T) {
	orders := &mockOrderService{
		getLatestPendingFn: func(chatID int64) (*models.Order, error) {
			if chatID == 1 {
				return &models.Order{Code: "P1", Status: models.OrderStatusPending}, nil
			}
			return nil, apperrors.ErrOrderNotFound
		},
		getLatestByUserIDFn: func(userID string) (*models.Order, error) {
			return &models.Order{Code: "L-" + userID}, nil
		},
		getOrderByCodeFn: func(code string) (*models.Order, error) {
			if code == "missing" {
				return nil, apperrors.ErrOrderNotFound
			}
			return &models.Order{Code: code}, nil
		},
	}
	r := setupOrderRouter(NewOrderHandler(orders, &mockSettlementService{}, &memStore{}))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
		wantOrder  string
	}{
		{"pending order", "/orders/pending?chat_id=1", http.StatusOK, "", "P1"},
		{"no pending order", "/orders/pending?chat_id=2", http.StatusNotFound, "ORDER_NOT_FOUND", ""},
		{"missing chat id", "/orders/pending", http.StatusBadRequest, "INVALID_INPUT", ""},
		{"latest order of user", "/orders/latest_order", http.StatusOK, "", "L-user-1"},
		{"order by code", "/orders/ABC123", http.StatusOK, "", "ABC123"},
		{"unknown code", "/orders/missing", http.StatusNotFound, "ORDER_NOT_FOUND", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(r, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			body := parseJSON(t, rec)
			if tt.wantCode != "" {
				assertErrorCode(t, body, tt.wantCode)
				return
			}
			order := body["order"].(map[string]interface{})
			if order["order_id"] != tt.wantOrder {
				t.Errorf("expected %s, got %v", tt.wantOrder, order["order_id"])
			}
		})
	}
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	type call struct {
		status models.OrderStatus
		path   services.StatusPath
		actor  string
	}
	var calls []call
	orders := &mockOrderService{
		updateStatusFn: func(code string, status models.OrderStatus, path services.StatusPath, actor string) (*models.Order, error) {
			calls = append(calls, call{status, path, actor})
			if code == "settled" {
				return nil, apperrors.ErrOrderSettled
			}
			return &models.Order{Code: code, Status: status}, nil
		},
	}
	r := setupOrderRouter(NewOrderHandler(orders, &mockSettlementService{}, &memStore{}))

	rec := doRequest(r, http.MethodPatch, "/orders/A1/status", `{"status":"verified"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = doRequest(r, http.MethodPatch, "/admin/orders/A1/status", `{"status":"complain"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = doRequest(r, http.MethodPatch, "/admin/orders/settled/status", `{"status":"declined"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "ORDER_SETTLED")

	rec = doRequest(r, http.MethodPatch, "/orders/A1/status", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing status, got %d", rec.Code)
	}

	if len(calls) != 3 {
		t.Fatalf("expected 3 service calls, got %d", len(calls))
	}
	if calls[0].path != services.PathBot || calls[0].actor != "bot" {
		t.Errorf("bot call recorded as %+v", calls[0])
	}
	if calls[1].path != services.PathAdmin || calls[1].actor != "admin:root" {
		t.Errorf("admin call recorded as %+v", calls[1])
	}
}

func TestOrderHandler_ListOrders(t *testing.T) {
	var gotFilter services.OrderFilter
	orders := &mockOrderService{
		listOrdersFn: func(filter services.OrderFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Order], error) {
			gotFilter = filter
			resp := pagination.NewPageResponse([]models.Order{{Code: "X1"}}, 1, 20, 1)
			return &resp, nil
		},
	}
	r := setupOrderRouter(NewOrderHandler(orders, &mockSettlementService{}, &memStore{}))

	rec := doRequest(r, http.MethodGet, "/admin/orders?status=pending&order_type=buy&order_id=X", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotFilter.Status == nil || *gotFilter.Status != models.OrderStatusPending {
		t.Errorf("status filter not applied: %v", gotFilter.Status)
	}
	if gotFilter.Type == nil || *gotFilter.Type != models.OrderTypeBuy {
		t.Errorf("type filter not applied: %v", gotFilter.Type)
	}
	if gotFilter.Code != "X" {
		t.Errorf("code filter not applied: %q", gotFilter.Code)
	}

	rec = doRequest(r, http.MethodGet, "/admin/orders?status=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestOrderHandler_Settle(t *testing.T) {
	var gotInput services.SettlementInput
	var gotActor string
	settlement := &mockSettlementService{
		settleFn: func(code string, input services.SettlementInput, actor string) (*services.SettlementResult, error) {
			gotInput, gotActor = input, actor
			if code == "done" {
				return nil, apperrors.ErrOrderAlreadySettled
			}
			return &services.SettlementResult{Order: &models.Order{Code: code}}, nil
		},
	}
	r := setupOrderRouter(NewOrderHandler(&mockOrderService{}, settlement, &memStore{}))

	rec := doRequest(r, http.MethodPost, "/admin/orders/S1/settle", `{"thai_delta":"-125.50","myanmar_delta":50000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotInput.ThaiDelta == nil || !gotInput.ThaiDelta.Equal(decimal.RequireFromString("-125.50")) {
		t.Errorf("unexpected thai delta %v", gotInput.ThaiDelta)
	}
	if gotInput.MyanmarDelta == nil || !gotInput.MyanmarDelta.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("unexpected myanmar delta %v", gotInput.MyanmarDelta)
	}
	if gotActor != "admin:root" {
		t.Errorf("expected admin:root, got %s", gotActor)
	}

	rec = doRequest(r, http.MethodPost, "/admin/orders/done/settle", `{}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "ORDER_ALREADY_SETTLED")
}

func TestOrderHandler_AttachConfirmReceipt(t *testing.T) {
	var gotPaths []string
	orders := &mockOrderService{
		attachConfirmReceiptFn: func(code string, paths []string, _ string) (*models.Order, error) {
			gotPaths = paths
			return &models.Order{Code: code, ConfirmReceipt: models.JoinPaths(paths)}, nil
		},
	}
	r := setupOrderRouter(NewOrderHandler(orders, &mockSettlementService{}, &memStore{}))

	rec := doMultipart(t, r, "/admin/orders/C1/confirm-receipt", nil, formFile{"confirm_receipt", "paid.png", "x"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(gotPaths) != 1 || gotPaths[0] != "/uploads/receipts/paid.png" {
		t.Errorf("unexpected paths %v", gotPaths)
	}

	rec = doMultipart(t, r, "/admin/orders/C1/confirm-receipt", map[string]string{"note": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", rec.Code)
	}
}

func TestOrderHandler_DeleteOrder(t *testing.T) {
	orders := &mockOrderService{
		deleteOrderFn: func(code, _ string) error {
			if code == "missing" {
				return apperrors.ErrOrderNotFound
			}
			return nil
		},
	}
	r := setupOrderRouter(NewOrderHandler(orders, &mockSettlementService{}, &memStore{}))

	if rec := doRequest(r, http.MethodDelete, "/admin/orders/D1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := doRequest(r, http.MethodDelete, "/admin/orders/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
