package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/internal/domain"
	"github.com/msgpilot/backend/internal/gateway/paypro"
	"github.com/msgpilot/backend/internal/handler"
	"github.com/msgpilot/backend/internal/middleware"
	"github.com/msgpilot/backend/internal/repository"
	"github.com/msgpilot/backend/internal/service"
	"github.com/msgpilot/backend/pkg/cache"
	"github.com/msgpilot/backend/pkg/i18n"
	"github.com/msgpilot/backend/pkg/jwt"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	processorIP = "198.51.100.10"
	internalKey = "internal-key-0123456789"
)

type RoutesSuite struct {
	suite.Suite
	router    *gin.Engine
	store     *repository.BillingStore
	gateway   *paypro.Gateway
	jwt       *jwt.Manager
	processor *httptest.Server
	// processorOK controls the management API answer
	processorOK bool
	calls       []string
}

func TestRoutesSuite(t *testing.T) {
	suite.Run(t, new(RoutesSuite))
}

func (s *RoutesSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(repository.AutoMigrate(db))
	audit := middleware.NewAuditLogger(db)
	s.Require().NoError(audit.Migrate())

	s.processorOK = true
	s.calls = nil
	s.processor = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls = append(s.calls, r.URL.Path)
		if s.processorOK {
			_, _ = w.Write([]byte(`{"isSuccess":true,"errors":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"isSuccess":false,"errors":[{"message":"Subscription not found"}]}`))
	}))

	s.gateway = paypro.NewGateway(paypro.Config{
		VendorAccountID: 4242,
		APISecretKey:    "api-secret",
		IPNSecretKey:    "ipn-secret",
		ValidationKey:   "validation-key",
		PlanProducts:    map[string]string{"pro_monthly": "87003"},
		PackProducts:    map[string]string{"pack_500": "87102"},
		AppURL:          "https://app.msgpilot.test",
		APIBaseURL:      s.processor.URL,
		AllowedIPs:      []string{processorIP},
	})
	s.store = repository.NewBillingStore(db)
	s.jwt = jwt.NewManager("test-secret-0123456789", 3600)

	cacheService := cache.NewService(nil)
	msgs := i18n.NewDefaultBundle()
	billing := service.NewBillingService(s.store, s.gateway, cacheService, nil)
	subscriptions := service.NewSubscriptionService(s.store, s.gateway, cacheService)
	checkout := service.NewCheckoutService(s.gateway)

	s.router = gin.New()
	Setup(s.router,
		handler.NewBillingHandler(checkout, subscriptions, msgs),
		handler.NewWebhookHandler(billing),
		handler.NewAdminHandler(billing, subscriptions, audit, msgs),
		handler.NewUsageHandler(subscriptions, msgs),
		audit, s.jwt, nil, internalKey,
	)
}

func (s *RoutesSuite) TearDownTest() {
	s.processor.Close()
}

func (s *RoutesSuite) token(userID, role string) string {
	tok, err := s.jwt.GenerateAccessToken(userID, userID+"@salon.test", "", role)
	s.Require().NoError(err)
	return tok
}

func (s *RoutesSuite) do(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RoutesSuite) postIPN(typeID paypro.IPNType, orderID, subscriptionID, custom, remoteIP string) *httptest.ResponseRecorder {
	v := url.Values{}
	v.Set("IPN_TYPE_ID", strconv.Itoa(int(typeID)))
	v.Set("IPN_TYPE_NAME", typeID.String())
	v.Set("ORDER_ID", orderID)
	v.Set("SUBSCRIPTION_ID", subscriptionID)
	v.Set("ORDER_CUSTOM_FIELDS", custom)
	ev := paypro.ParseIPNValues(v)
	period := ev.Custom.BillingPeriod
	if period == "" {
		period = paypro.PeriodMonthly
	}
	v.Set("PRODUCT_ID", s.gateway.ProductID(paypro.CheckoutRequest{
		PlanID: ev.Custom.PlanID, PackID: ev.Custom.PackID, BillingPeriod: period,
	}))
	v.Set("HASH", s.gateway.ExpectedHash(ev.OrderID))
	v.Set("SIGNATURE", s.gateway.ExpectedSignature(ev))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paypro", bytes.NewBufferString(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = remoteIP + ":443"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *RoutesSuite) decode(w *httptest.ResponseRecorder, dest interface{}) envelope {
	var env envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if dest != nil {
		s.Require().NoError(json.Unmarshal(env.Data, dest))
	}
	return env
}

func (s *RoutesSuite) TestPlansArePublic() {
	w := s.do(http.MethodGet, "/api/v1/plans", "", nil)
	s.Equal(http.StatusOK, w.Code)

	var catalog handler.CatalogResponse
	s.decode(w, &catalog)
	s.NotEmpty(catalog.Plans)
	s.Len(catalog.Packs, 3)
}

func (s *RoutesSuite) TestDashboardRequiresToken() {
	for _, path := range []string{"/api/v1/subscription", "/api/v1/admin/billing/events"} {
		w := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusUnauthorized, w.Code, path)
	}
}

func (s *RoutesSuite) TestCheckout() {
	tok := s.token("u1", jwt.RoleOwner)

	w := s.do(http.MethodPost, "/api/v1/checkout", tok, domain.CheckoutRequest{PlanID: "pro"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var out domain.CheckoutResponse
	s.decode(w, &out)
	s.Contains(out.CheckoutURL, "products[1][id]=87003")
	s.Contains(out.CheckoutURL, "x-userId")

	w = s.do(http.MethodPost, "/api/v1/checkout", tok, domain.CheckoutRequest{PlanID: "pro", BillingPeriod: "yearly"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	env := s.decode(w, nil)
	s.Equal("UNPROCESSABLE_ENTITY", env.Error.Code)

	w = s.do(http.MethodPost, "/api/v1/checkout", tok, domain.CheckoutRequest{PlanID: "platinum"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/checkout", tok, map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RoutesSuite) TestTrialThenSubscriptionView() {
	tok := s.token("u1", jwt.RoleOwner)

	w := s.do(http.MethodGet, "/api/v1/subscription", tok, nil, "Accept-Language", "ru-RU")
	s.Equal(http.StatusNotFound, w.Code)
	env := s.decode(w, nil)
	s.Equal("Подписка для этого аккаунта не найдена", env.Error.Message)

	w = s.do(http.MethodPost, "/api/v1/subscription/trial", tok, nil)
	s.Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/v1/subscription/trial", tok, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ALREADY_EXISTS", s.decode(w, nil).Error.Code)

	w = s.do(http.MethodGet, "/api/v1/subscription", tok, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var view domain.SubscriptionResponse
	s.decode(w, &view)
	s.Equal("trial", view.PlanID)
	s.True(view.Usable)
	s.False(view.Managed)

	// trials have no processor subscription to cancel
	w = s.do(http.MethodPost, "/api/v1/subscription/cancel", tok, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Empty(s.calls)
}

func (s *RoutesSuite) TestWebhookActivationThenCancelResume() {
	w := s.postIPN(paypro.IPNOrderCharged, "9001", "555", "x-userId=u1,x-planId=pro,x-billingPeriod=monthly", processorIP)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var res service.IPNResult
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.Equal(domain.EventApplied, res.Outcome)

	w = s.postIPN(paypro.IPNOrderCharged, "9001", "555", "x-userId=u1,x-planId=pro,x-billingPeriod=monthly", processorIP)
	s.Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.True(res.Duplicate)

	tok := s.token("u1", jwt.RoleOwner)

	s.processorOK = false
	w = s.do(http.MethodPost, "/api/v1/subscription/cancel", tok, nil)
	s.Equal(http.StatusBadGateway, w.Code)
	sub, err := s.store.Subscriptions.FindByUserID(context.Background(), "u1")
	s.Require().NoError(err)
	s.Equal(domain.SubscriptionActive, sub.Status)

	s.processorOK = true
	w = s.do(http.MethodPost, "/api/v1/subscription/cancel", tok, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var action handler.ActionResponse
	s.decode(w, &action)
	s.Equal(domain.SubscriptionCancelled, action.Subscription.Status)
	s.Contains(action.Message, "stays active until")

	w = s.do(http.MethodPost, "/api/v1/subscription/cancel", tok, nil)
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/subscription/resume", tok, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &action)
	s.Equal(domain.SubscriptionActive, action.Subscription.Status)
	s.Len(s.calls, 3)
}

func (s *RoutesSuite) TestWebhookRejections() {
	w := s.postIPN(paypro.IPNOrderCharged, "9002", "556", "x-userId=u2,x-planId=pro", "203.0.113.7")
	s.Equal(http.StatusOK, w.Code)
	var res service.IPNResult
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	s.Equal(domain.EventRejectedAuth, res.Outcome)
	s.True(res.Flagged)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paypro", bytes.NewBufferString("%zz"))
	req.RemoteAddr = processorIP + ":443"
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RoutesSuite) TestAdminReviewAndTerminate() {
	s.postIPN(paypro.IPNOrderCharged, "9003", "557", "x-userId=u3,x-planId=pro", processorIP)
	s.postIPN(paypro.IPNOrderRefunded, "9003", "557", "x-userId=u3", processorIP)

	w := s.do(http.MethodGet, "/api/v1/admin/billing/events?flagged=true", s.token("u3", jwt.RoleOwner), nil)
	s.Equal(http.StatusForbidden, w.Code)

	admin := s.token("ops", jwt.RoleAdmin)
	w = s.do(http.MethodGet, "/api/v1/admin/billing/events?flagged=true", admin, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var events []domain.BillingEvent
	s.decode(w, &events)
	s.Require().Len(events, 1)
	s.Equal(domain.EventNeedsReview, events[0].Outcome)

	w = s.do(http.MethodGet, "/api/v1/admin/billing/events?limit=0", admin, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	w = s.do(http.MethodGet, "/api/v1/admin/billing/events?flagged=maybe", admin, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/admin/subscriptions/u3/terminate", admin, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var action handler.ActionResponse
	s.decode(w, &action)
	s.Equal(domain.SubscriptionExpired, action.Subscription.Status)

	w = s.do(http.MethodPost, "/api/v1/admin/subscriptions/nobody/terminate", admin, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/audit-logs?action=terminate", admin, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var logs []middleware.AuditLog
	s.decode(w, &logs)
	s.Require().Len(logs, 2)
	s.Equal("nobody", logs[0].ResourceID)
	s.Equal(http.StatusNotFound, logs[0].Status)
	s.Equal("u3", logs[1].ResourceID)
	s.Equal("ops", logs[1].ActorID)
	s.Equal(http.StatusOK, logs[1].Status)
}

func (s *RoutesSuite) TestInternalUsage() {
	w := s.do(http.MethodPost, "/internal/v1/usage/messages", "", domain.UsageRequest{UserID: "u1", Messages: 1})
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/internal/v1/usage/messages", "", domain.UsageRequest{UserID: "u1", Messages: 1}, "X-API-Key", internalKey)
	s.Equal(http.StatusNotFound, w.Code)

	s.do(http.MethodPost, "/api/v1/subscription/trial", s.token("u1", jwt.RoleOwner), nil)

	w = s.do(http.MethodPost, "/internal/v1/usage/messages", "", domain.UsageRequest{UserID: "u1", Messages: 50}, "X-API-Key", internalKey)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var usage domain.UsageResponse
	s.decode(w, &usage)
	s.Zero(usage.MessagesRemaining)

	w = s.do(http.MethodPost, "/internal/v1/usage/messages", "", domain.UsageRequest{UserID: "u1", Messages: 1}, "X-API-Key", internalKey)
	s.Equal(http.StatusPaymentRequired, w.Code)
	s.Equal("QUOTA_EXCEEDED", s.decode(w, nil).Error.Code)

	w = s.do(http.MethodPost, "/internal/v1/usage/messages", "", domain.UsageRequest{UserID: "u1"}, "X-API-Key", internalKey)
	s.Equal(http.StatusBadRequest, w.Code)
}
