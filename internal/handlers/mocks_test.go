package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/middleware"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/pagination"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/services"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/validator"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/webhook"
)

// --- mock services ---

var (
	_ services.UserServicer       = (*mockUserService)(nil)
	_ services.TokenStorer        = (*mockTokenStore)(nil)
	_ services.OrderServicer      = (*mockOrderService)(nil)
	_ services.SettlementServicer = (*mockSettlementService)(nil)
	_ services.BankServicer       = (*mockBankService)(nil)
	_ services.MessageServicer    = (*mockMessageService)(nil)
	_ services.SettingsServicer   = (*mockSettingsService)(nil)
	_ webhook.Sender              = (*mockSender)(nil)
)

type mockUserService struct {
	registerFn     func(phone, name, password string) (*models.User, error)
	authenticateFn func(phone, password string) (*models.User, error)
	getUserByIDFn  func(id string) (*models.User, error)
}

func (m *mockUserService) Register(phone, name, password string) (*models.User, error) {
	if m.registerFn != nil {
		return m.registerFn(phone, name, password)
	}
	return &models.User{Phone: phone, Name: name}, nil
}

func (m *mockUserService) Authenticate(phone, password string) (*models.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(phone, password)
	}
	return &models.User{Phone: phone}, nil
}

func (m *mockUserService) GetUserByID(id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	u := &models.User{Phone: "+66800000000"}
	u.ID = id
	return u, nil
}

type mockTokenStore struct {
	issued []string
}

func (m *mockTokenStore) Issue(userID string) (string, time.Time, error) {
	m.issued = append(m.issued, userID)
	return "token-for-" + userID, time.Now().Add(time.Hour), nil
}

func (m *mockTokenStore) Resolve(token string) (string, error) {
	return strings.TrimPrefix(token, "token-for-"), nil
}

func (m *mockTokenStore) Revoke(string) error          { return nil }
func (m *mockTokenStore) PurgeExpired() (int64, error) { return 0, nil }

type mockOrderService struct {
	createOrderFn          func(input services.OrderInput) (*models.Order, error)
	getOrderByCodeFn       func(code string) (*models.Order, error)
	listOrdersFn           func(filter services.OrderFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Order], error)
	getLatestPendingFn     func(chatID int64) (*models.Order, error)
	getLatestByUserIDFn    func(userID string) (*models.Order, error)
	updateStatusFn         func(code string, status models.OrderStatus, path services.StatusPath, actor string) (*models.Order, error)
	attachConfirmReceiptFn func(code string, paths []string, actor string) (*models.Order, error)
	deleteOrderFn          func(code, actor string) error
}

func (m *mockOrderService) CreateOrder(input services.OrderInput) (*models.Order, error) {
	if m.createOrderFn != nil {
		return m.createOrderFn(input)
	}
	return &models.Order{Code: "100125A0001B"}, nil
}

func (m *mockOrderService) GetOrderByCode(code string) (*models.Order, error) {
	if m.getOrderByCodeFn != nil {
		return m.getOrderByCodeFn(code)
	}
	return &models.Order{Code: code}, nil
}

func (m *mockOrderService) ListOrders(filter services.OrderFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Order], error) {
	if m.listOrdersFn != nil {
		return m.listOrdersFn(filter, page)
	}
	resp := pagination.NewPageResponse([]models.Order{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockOrderService) GetLatestPendingByChatID(chatID int64) (*models.Order, error) {
	if m.getLatestPendingFn != nil {
		return m.getLatestPendingFn(chatID)
	}
	return &models.Order{Status: models.OrderStatusPending}, nil
}

func (m *mockOrderService) GetLatestByUserID(userID string) (*models.Order, error) {
	if m.getLatestByUserIDFn != nil {
		return m.getLatestByUserIDFn(userID)
	}
	return &models.Order{}, nil
}

func (m *mockOrderService) UpdateStatus(code string, status models.OrderStatus, path services.StatusPath, actor string) (*models.Order, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(code, status, path, actor)
	}
	return &models.Order{Code: code, Status: status}, nil
}

func (m *mockOrderService) AttachConfirmReceipt(code string, paths []string, actor string) (*models.Order, error) {
	if m.attachConfirmReceiptFn != nil {
		return m.attachConfirmReceiptFn(code, paths, actor)
	}
	return &models.Order{Code: code, ConfirmReceipt: models.JoinPaths(paths)}, nil
}

func (m *mockOrderService) DeleteOrder(code, actor string) error {
	if m.deleteOrderFn != nil {
		return m.deleteOrderFn(code, actor)
	}
	return nil
}

type mockSettlementService struct {
	settleFn func(code string, input services.SettlementInput, actor string) (*services.SettlementResult, error)
}

func (m *mockSettlementService) Settle(code string, input services.SettlementInput, actor string) (*services.SettlementResult, error) {
	if m.settleFn != nil {
		return m.settleFn(code, input, actor)
	}
	return &services.SettlementResult{Order: &models.Order{Code: code}}, nil
}

type mockBankService struct {
	listEnabledFn     func(currency models.BankCurrency) ([]services.BankAccountView, error)
	createAccountFn   func(currency models.BankCurrency, fields models.BankAccountFields) (*services.BankAccountView, error)
	setEnabledFn      func(currency models.BankCurrency, id string, enabled bool) (*services.BankAccountView, error)
	balanceSnapshotFn func() (*services.BalanceSnapshot, error)
}

func (m *mockBankService) ListEnabled(currency models.BankCurrency) ([]services.BankAccountView, error) {
	if m.listEnabledFn != nil {
		return m.listEnabledFn(currency)
	}
	return []services.BankAccountView{}, nil
}

func (m *mockBankService) GetAccount(currency models.BankCurrency, id string) (*services.BankAccountView, error) {
	return &services.BankAccountView{ID: id, Currency: currency}, nil
}

func (m *mockBankService) FindMyanmarByName(string) (*models.MyanmarBankAccount, error) {
	return &models.MyanmarBankAccount{}, nil
}

func (m *mockBankService) CreateAccount(currency models.BankCurrency, fields models.BankAccountFields) (*services.BankAccountView, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(currency, fields)
	}
	return &services.BankAccountView{Currency: currency, BankName: fields.BankName}, nil
}

func (m *mockBankService) SetEnabled(currency models.BankCurrency, id string, enabled bool) (*services.BankAccountView, error) {
	if m.setEnabledFn != nil {
		return m.setEnabledFn(currency, id, enabled)
	}
	return &services.BankAccountView{ID: id, Currency: currency, Enabled: enabled}, nil
}

func (m *mockBankService) BalanceSnapshot() (*services.BalanceSnapshot, error) {
	if m.balanceSnapshotFn != nil {
		return m.balanceSnapshotFn()
	}
	return &services.BalanceSnapshot{}, nil
}

func (m *mockBankService) ApplyDelta(_ *gorm.DB, _ models.BankCurrency, _ string, delta decimal.Decimal) (decimal.Decimal, error) {
	return delta, nil
}

type mockMessageService struct {
	submitMessageFn     func(input services.MessageInput) (*models.Message, error)
	pollUnseenFn        func(chatID int64) ([]models.Message, error)
	listChatsFn         func() ([]services.ChatSummary, error)
	chatDetailFn        func(identityID string) (*services.ChatDetail, error)
	adminReplyFn        func(identityID, content string, images []string, actor string) (*models.Message, error)
	updateLatestOrderFn func(identityID string, status models.OrderStatus, settlement services.SettlementInput, actor string) (*models.Order, error)
}

func (m *mockMessageService) SubmitMessage(input services.MessageInput) (*models.Message, error) {
	if m.submitMessageFn != nil {
		return m.submitMessageFn(input)
	}
	return &models.Message{Content: input.Content}, nil
}

func (m *mockMessageService) PollUnseen(chatID int64) ([]models.Message, error) {
	if m.pollUnseenFn != nil {
		return m.pollUnseenFn(chatID)
	}
	return []models.Message{}, nil
}

func (m *mockMessageService) ListChats() ([]services.ChatSummary, error) {
	if m.listChatsFn != nil {
		return m.listChatsFn()
	}
	return []services.ChatSummary{}, nil
}

func (m *mockMessageService) ChatDetail(identityID string) (*services.ChatDetail, error) {
	if m.chatDetailFn != nil {
		return m.chatDetailFn(identityID)
	}
	return &services.ChatDetail{}, nil
}

func (m *mockMessageService) AdminReply(identityID, content string, images []string, actor string) (*models.Message, error) {
	if m.adminReplyFn != nil {
		return m.adminReplyFn(identityID, content, images, actor)
	}
	return &models.Message{Content: content, FromBackend: true}, nil
}

func (m *mockMessageService) UpdateLatestOrderStatus(identityID string, status models.OrderStatus, settlement services.SettlementInput, actor string) (*models.Order, error) {
	if m.updateLatestOrderFn != nil {
		return m.updateLatestOrderFn(identityID, status, settlement, actor)
	}
	return &models.Order{Status: status}, nil
}

type mockSettingsService struct {
	snapshot       services.SettingsSnapshot
	rateErr        error
	webhook        *models.WebhookSettings
	webhookErr     error
	listWebhookFn  func(filter services.WebhookLogFilter, page pagination.PageRequest) (*pagination.PageResponse[models.WebhookLog], error)
	updatedWebhook *models.WebhookSettings
}

func (m *mockSettingsService) Get() (*services.SettingsSnapshot, error) {
	s := m.snapshot
	return &s, nil
}

func (m *mockSettingsService) SetMaintenance(on bool) error {
	m.snapshot.Maintenance = on
	return nil
}

func (m *mockSettingsService) SetAuthFeature(on bool) error {
	m.snapshot.AuthFeature = on
	return nil
}

func (m *mockSettingsService) AddExchangeRate(buy, sell decimal.Decimal) (*models.ExchangeRate, error) {
	if m.rateErr != nil {
		return nil, m.rateErr
	}
	return &models.ExchangeRate{Buy: buy, Sell: sell}, nil
}

func (m *mockSettingsService) GetWebhookSettings() (*models.WebhookSettings, error) {
	if m.webhookErr != nil {
		return nil, m.webhookErr
	}
	return m.webhook, nil
}

func (m *mockSettingsService) UpdateWebhookSettings(url, secret string, enabled bool) (*models.WebhookSettings, error) {
	m.updatedWebhook = &models.WebhookSettings{WebhookURL: url, Secret: secret, Enabled: enabled}
	return m.updatedWebhook, nil
}

func (m *mockSettingsService) ListWebhookLogs(filter services.WebhookLogFilter, page pagination.PageRequest) (*pagination.PageResponse[models.WebhookLog], error) {
	if m.listWebhookFn != nil {
		return m.listWebhookFn(filter, page)
	}
	resp := pagination.NewPageResponse([]models.WebhookLog{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockSettingsService) PurgeWebhookLogs(time.Time) (int64, error) { return 0, nil }

type mockSender struct {
	mu       sync.Mutex
	ok       bool
	payloads []webhook.Payload
}

func (m *mockSender) Send(_ context.Context, p webhook.Payload) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, p)
	return m.ok
}

// memStore keeps uploads in memory.
type memStore struct {
	files   map[string]string
	deleted []string
}

func (s *memStore) Delete(ref string) error {
	delete(s.files, ref)
	s.deleted = append(s.deleted, ref)
	return nil
}

func (s *memStore) Save(category, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.files == nil {
		s.files = make(map[string]string)
	}
	ref := "/uploads/" + category + "/" + filename
	s.files[ref] = string(data)
	return ref, nil
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func injectAdmin(username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.AdminKey, username)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type formFile struct {
	field, name, content string
}

func doMultipart(t *testing.T, r *gin.Engine, path string, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(f.content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// filesUnder lists every regular file below root.
func filesUnder(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return files
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}
