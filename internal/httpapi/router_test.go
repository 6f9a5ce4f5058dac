package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/config"
	"github.com/sudo-init-do/taskmarket/internal/events"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store/memory"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string            `json:"message"`
		Code    string            `json:"code"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type apiClient struct {
	t *testing.T
	e *echo.Echo
}

func (a apiClient) call(method, path, token string, body any, out any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if out != nil && env.Success {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
	return rec.Code, env
}

func (a apiClient) signup(name, email string, role model.Role) (string, model.User) {
	a.t.Helper()
	var sess struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	status, env := a.call(http.MethodPost, "/auth/signup", "", map[string]any{
		"name": name, "email": email, "password": "secret123", "role": role,
	}, &sess)
	require.Equal(a.t, http.StatusCreated, status, env.Error)
	return sess.Token, sess.User
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "taskmarket", Env: "test"},
		JWT:     config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		Payment: config.PaymentConfig{CommissionBps: 1000},
	}
}

func newTestAPI(t *testing.T) (apiClient, *memory.Store, *events.Recorder) {
	t.Helper()
	st := memory.New()
	rec := &events.Recorder{}
	e := NewRouter(Deps{Config: testConfig(), Store: st, Events: rec})
	return apiClient{t: t, e: e}, st, rec
}

func TestHealth(t *testing.T) {
	api, _, _ := newTestAPI(t)
	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		api.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAuthErrors(t *testing.T) {
	api, _, _ := newTestAPI(t)
	providerToken, _ := api.signup("Pat", "pat@example.com", model.RoleProvider)

	status, env := api.call(http.MethodPost, "/api/tasks", "", map[string]any{"title": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, env = api.call(http.MethodPost, "/api/tasks", providerToken, map[string]any{"title": "x"}, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = api.call(http.MethodGet, "/api/admin/stats", providerToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = api.call(http.MethodPost, "/auth/signup", "", map[string]any{
		"name": "Eve", "email": "eve@example.com", "password": "secret123", "role": "admin",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Error.Fields, "role")

	status, env = api.call(http.MethodPost, "/auth/signup", "", map[string]any{
		"name": "Pat again", "email": "PAT@example.com", "password": "secret123",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = api.call(http.MethodPost, "/auth/login", "", map[string]any{
		"email": "pat@example.com", "password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTaskToPaymentFlow(t *testing.T) {
	api, st, rec := newTestAPI(t)
	clientToken, clientUser := api.signup("Chioma", "chioma@example.com", "")
	providerToken, providerUser := api.signup("Pat", "pat@example.com", model.RoleProvider)
	rivalToken, _ := api.signup("Sam", "sam@example.com", model.RoleProvider)
	_, _ = api.signup("Root", "root@example.com", "")

	_, err := auth.NewService(st, auth.NewTokens("test-secret", 0)).Promote(context.Background(), "root@example.com", model.RoleAdmin)
	require.NoError(t, err)
	var adminSess struct {
		Token string `json:"token"`
	}
	status, _ := api.call(http.MethodPost, "/auth/login", "", map[string]any{
		"email": "root@example.com", "password": "secret123",
	}, &adminSess)
	require.Equal(t, http.StatusOK, status)
	adminToken := adminSess.Token

	// client posts a task
	var task model.Task
	status, env := api.call(http.MethodPost, "/api/tasks", clientToken, map[string]any{
		"title": "Build a landing page", "category": "Web",
		"budget": map[string]any{"amount": 60000, "type": "fixed"},
	}, &task)
	require.Equal(t, http.StatusCreated, status, env.Error)
	assert.Equal(t, model.TaskOpen, task.Status)
	assert.Equal(t, clientUser.ID, task.ClientID)

	// two providers bid
	var bid, rival model.Bid
	status, env = api.call(http.MethodPost, "/api/bids", providerToken, map[string]any{
		"task_id": task.ID, "amount": 45000, "message": "two weeks",
	}, &bid)
	require.Equal(t, http.StatusOK, status, env.Error)
	status, _ = api.call(http.MethodPost, "/api/bids", rivalToken, map[string]any{
		"task_id": task.ID, "amount": 40000,
	}, &rival)
	require.Equal(t, http.StatusOK, status)

	var bids []model.Bid
	status, _ = api.call(http.MethodGet, "/api/bids/task/"+task.ID, clientToken, nil, &bids)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, bids, 2)

	// the provider cannot accept their own bid
	status, _ = api.call(http.MethodPost, "/api/tasks/"+task.ID+"/bids/"+bid.ID+"/accept", providerToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// client accepts
	var accepted struct {
		BidID      string        `json:"bid_id"`
		Task       model.Task    `json:"task"`
		Payment    model.Payment `json:"payment"`
		Superseded []string      `json:"superseded_bids"`
	}
	status, env = api.call(http.MethodPatch, "/api/bids/"+bid.ID+"/respond", clientToken, map[string]any{
		"action": "accept", "message": "deal",
	}, &accepted)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, bid.ID, accepted.BidID)
	assert.Equal(t, model.TaskInProgress, accepted.Task.Status)
	assert.Equal(t, providerUser.ID, accepted.Task.AssignedProviderID)
	assert.Equal(t, []string{rival.ID}, accepted.Superseded)
	assert.Equal(t, model.PaymentRequired, accepted.Payment.Status)
	assert.Equal(t, int64(4500), accepted.Payment.CommissionAmount)
	assert.Equal(t, int64(40500), accepted.Payment.ProviderAmount)

	// accepting again is an invalid transition
	status, env = api.call(http.MethodPost, "/api/tasks/"+task.ID+"/bids/"+rival.ID+"/accept", clientToken, nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	// client submits proof, admin approves
	paymentPath := "/api/payments/" + accepted.Payment.ID
	var p model.Payment
	status, env = api.call(http.MethodPost, paymentPath+"/proof", clientToken, map[string]any{
		"screenshot_url": "https://cdn.example.com/r.png", "reference": "TRX-1",
	}, &p)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, model.PaymentSubmitted, p.Status)

	var pending []model.Payment
	status, _ = api.call(http.MethodGet, "/api/admin/payments/pending", adminToken, nil, &pending)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, pending, 1)

	status, env = api.call(http.MethodPost, "/api/admin/payments/"+p.ID+"/verify", adminToken, map[string]any{"action": "approve"}, &p)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, model.PaymentReleased, p.Status)

	status, _ = api.call(http.MethodGet, paymentPath, rivalToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// complete and review
	status, _ = api.call(http.MethodPost, "/api/tasks/"+task.ID+"/complete", clientToken, nil, &task)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.TaskCompleted, task.Status)

	status, env = api.call(http.MethodPost, "/api/tasks/"+task.ID+"/reviews", clientToken, map[string]any{
		"rating": 5, "comment": "excellent",
	}, nil)
	require.Equal(t, http.StatusCreated, status, env.Error)

	var reviews struct {
		Summary model.ProviderRatingSummary `json:"summary"`
	}
	status, _ = api.call(http.MethodGet, "/api/providers/"+providerUser.ID+"/reviews", "", nil, &reviews)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, reviews.Summary.TotalReviews)
	assert.Equal(t, 5.0, reviews.Summary.AverageRating)

	assert.Equal(t, []string{
		events.BidSubmitted, events.BidSubmitted,
		events.BidAccepted, events.BidRejected,
		events.PaymentSubmitted, events.PaymentVerified,
		events.TaskCompleted,
	}, rec.Types())
}

func TestCatalogFlow(t *testing.T) {
	api, _, _ := newTestAPI(t)
	clientToken, _ := api.signup("Chioma", "chioma@example.com", "")
	providerToken, _ := api.signup("Pat", "pat@example.com", model.RoleProvider)

	var svc model.Service
	status, env := api.call(http.MethodPost, "/api/services", providerToken, map[string]any{
		"title": "Copywriting",
		"packages": []map[string]any{
			{"name": "basic", "price": 20000, "delivery_days": 3},
		},
	}, &svc)
	require.Equal(t, http.StatusCreated, status, env.Error)

	status, env = api.call(http.MethodPost, "/api/services", providerToken, map[string]any{
		"title": "No packages", "packages": []map[string]any{},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	var b model.Booking
	status, env = api.call(http.MethodPost, "/api/services/"+svc.ID+"/bookings", clientToken, map[string]any{"package_name": "basic"}, &b)
	require.Equal(t, http.StatusCreated, status, env.Error)
	status, _ = api.call(http.MethodPost, "/api/bookings/"+b.ID+"/complete", providerToken, nil, &b)
	require.Equal(t, http.StatusOK, status)
	status, env = api.call(http.MethodPost, "/api/bookings/"+b.ID+"/rate", clientToken, map[string]any{"score": 4}, &b)
	require.Equal(t, http.StatusOK, status, env.Error)

	var listed []model.Service
	status, _ = api.call(http.MethodGet, "/api/services?sort=rating", "", nil, &listed)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, listed, 1)
	assert.Equal(t, model.Rating{Average: 4, Count: 1}, listed[0].Rating)
	assert.Greater(t, listed[0].PopularityScore, 0.0)

	status, _ = api.call(http.MethodGet, "/api/services?sort=price", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminAndProfiles(t *testing.T) {
	api, st, _ := newTestAPI(t)
	providerToken, providerUser := api.signup("Pat", "pat@example.com", model.RoleProvider)
	clientToken, clientUser := api.signup("Chioma", "chioma@example.com", "")
	_, rootUser := api.signup("Root", "root@example.com", "")

	_, err := auth.NewService(st, auth.NewTokens("test-secret", 0)).Promote(context.Background(), "root@example.com", model.RoleAdmin)
	require.NoError(t, err)
	var adminSess struct {
		Token string `json:"token"`
	}
	status, _ := api.call(http.MethodPost, "/auth/login", "", map[string]any{
		"email": "root@example.com", "password": "secret123",
	}, &adminSess)
	require.Equal(t, http.StatusOK, status)
	adminToken := adminSess.Token

	var stats struct {
		Users int `json:"users"`
	}
	status, _ = api.call(http.MethodGet, "/api/admin/stats", adminToken, nil, &stats)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, stats.Users)

	var users []model.User
	status, _ = api.call(http.MethodGet, "/api/admin/users", adminToken, nil, &users)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, users, 3)

	// suspended accounts cannot log in until reactivated
	var suspended model.User
	status, _ = api.call(http.MethodPost, "/api/admin/users/"+providerUser.ID+"/suspend", adminToken, nil, &suspended)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, suspended.IsActive)

	login := map[string]any{"email": "pat@example.com", "password": "secret123"}
	status, _ = api.call(http.MethodPost, "/auth/login", "", login, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// the token issued before the suspension is refused too
	status, env := api.call(http.MethodGet, "/auth/me", providerToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "account suspended", env.Error.Message)

	status, _ = api.call(http.MethodPost, "/api/admin/users/"+providerUser.ID+"/activate", adminToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.call(http.MethodGet, "/auth/me", providerToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.call(http.MethodPost, "/auth/login", "", login, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = api.call(http.MethodPost, "/api/admin/users/"+rootUser.ID+"/suspend", adminToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "admins cannot be suspended", env.Error.Message)

	status, _ = api.call(http.MethodGet, "/api/admin/users", clientToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// profiles
	var updated model.User
	status, _ = api.call(http.MethodPatch, "/api/users/profile", clientToken, map[string]any{"name": "  Chioma A.  "}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Chioma A.", updated.Name)

	var profile struct {
		ID    string     `json:"id"`
		Name  string     `json:"name"`
		Role  model.Role `json:"role"`
		Email string     `json:"email"`
	}
	status, _ = api.call(http.MethodGet, "/api/users/"+clientUser.ID+"/profile", "", nil, &profile)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Chioma A.", profile.Name)
	assert.Equal(t, model.RoleClient, profile.Role)
	assert.Empty(t, profile.Email)

	status, _ = api.call(http.MethodGet, "/api/users/missing/profile", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
