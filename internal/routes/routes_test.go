package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/credisave/internal/config"
	"github.com/congo-pay/credisave/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		AppName:           "credisave-test",
		AppEnv:            "test",
		JWTSecret:         "access-secret",
		RefreshSecret:     "refresh-secret",
		JWTIssuer:         "credisave-test",
		AccessTokenTTL:    time.Minute,
		RefreshTokenTTL:   time.Hour,
		IdempotencyTTL:    time.Hour,
		AnalyticsCacheTTL: time.Minute,
		DefaultCurrency:   "USD",
		LoginRateLimit:    5,
		AdminEmail:        "root@example.com",
		AdminPassword:     "admin-password",
	}
}

type client struct {
	t   *testing.T
	app *fiber.App
}

func newClient(t *testing.T, withRedis bool) client {
	t.Helper()
	deps := Deps{Cfg: testConfig(), Logger: logging.Discard()}
	if withRedis {
		mr := miniredis.RunT(t)
		deps.Cache = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { deps.Cache.Close() })
	}
	app := fiber.New()
	require.NoError(t, Setup(app, deps))
	return client{t: t, app: app}
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c client) do(method, path, token, idemKey string, body any, out any) int {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c client) login(email, password string) string {
	c.t.Helper()
	var session struct {
		AccessToken string `json:"access_token"`
	}
	status := c.do(fiber.MethodPost, "/api/v1/auth/login", "", "",
		map[string]string{"email": email, "password": password}, &session)
	require.Equal(c.t, fiber.StatusOK, status)
	require.NotEmpty(c.t, session.AccessToken)
	return session.AccessToken
}

func (c client) registerAndLogin(email string) string {
	c.t.Helper()
	status := c.do(fiber.MethodPost, "/api/v1/auth/register", "", "", map[string]string{
		"email": email, "password": "correct-horse", "first_name": "Ada", "last_name": "Lovelace",
	}, nil)
	require.Equal(c.t, fiber.StatusCreated, status)
	return c.login(email, "correct-horse")
}

type account struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
}

type creditView struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	OutstandingBalance string `json:"outstanding_balance"`
	TotalRepayable     string `json:"total_repayable"`
}

func TestCreditLifecycleOverHTTP(t *testing.T) {
	c := newClient(t, true)
	user := c.registerAndLogin("ada@example.com")
	admin := c.login("root@example.com", "admin-password")

	var accounts []account
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodGet, "/api/v1/savings", user, "", nil, &accounts))
	require.Len(t, accounts, 1)
	acc := accounts[0].ID

	// Money movements need an idempotency key when Redis is configured.
	assert.Equal(t, fiber.StatusBadRequest,
		c.do(fiber.MethodPost, "/api/v1/savings/"+acc+"/deposit", user, "", map[string]string{"amount": "1000"}, nil))

	var deposit struct {
		NewBalance string `json:"new_balance"`
	}
	require.Equal(t, fiber.StatusOK,
		c.do(fiber.MethodPost, "/api/v1/savings/"+acc+"/deposit", user, "dep-1", map[string]string{"amount": "1000"}, &deposit))
	assert.Equal(t, "1000", deposit.NewBalance)
	require.Equal(t, fiber.StatusOK,
		c.do(fiber.MethodPost, "/api/v1/savings/"+acc+"/deposit", user, "dep-1", map[string]string{"amount": "1000"}, &deposit))
	assert.Equal(t, "1000", deposit.NewBalance, "replayed deposit must not post twice")

	var requested struct {
		Credit       creditView `json:"credit"`
		AutoApproved bool       `json:"auto_approved"`
	}
	require.Equal(t, fiber.StatusCreated, c.do(fiber.MethodPost, "/api/v1/credits", user, "req-1",
		map[string]any{"amount": "1000", "tenure": 12, "purpose": "school fees"}, &requested))
	assert.False(t, requested.AutoApproved)
	assert.Equal(t, "PENDING", requested.Credit.Status)
	id := requested.Credit.ID

	assert.Equal(t, fiber.StatusForbidden, c.do(fiber.MethodPatch, "/api/v1/admin/credits/"+id+"/approve", user, "", nil, nil))

	var cv creditView
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodPatch, "/api/v1/admin/credits/"+id+"/approve", admin, "", nil, &cv))
	assert.Equal(t, "APPROVED", cv.Status)
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodPost, "/api/v1/admin/credits/"+id+"/disburse", admin, "disb-1", nil, nil))
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodPatch, "/api/v1/admin/credits/"+id+"/activate", admin, "", nil, &cv))
	assert.Equal(t, "ACTIVE", cv.Status)

	var balance struct {
		Balance string `json:"balance"`
	}
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodGet, "/api/v1/savings/"+acc+"/balance", user, "", nil, &balance))
	assert.Equal(t, "2000", balance.Balance)

	var repaid struct {
		Status string `json:"status"`
	}
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodPost, "/api/v1/credits/"+id+"/repay", user, "rep-1",
		map[string]string{"amount": "100", "account_id": acc}, &repaid))
	assert.Equal(t, "ACTIVE", repaid.Status)

	var schedule struct {
		Schedule []struct {
			Number int `json:"installment_number"`
		} `json:"schedule"`
	}
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodGet, "/api/v1/credits/"+id+"/schedule", user, "", nil, &schedule))
	assert.Len(t, schedule.Schedule, 12)

	var unread struct {
		UnreadCount int `json:"unread_count"`
	}
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodGet, "/api/v1/notifications/unread-count", user, "", nil, &unread))
	assert.GreaterOrEqual(t, unread.UnreadCount, 2)

	var dashboard struct {
		TotalCredits      int `json:"total_credits"`
		TotalTransactions int `json:"total_transactions"`
	}
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodGet, "/api/v1/admin/analytics/dashboard", admin, "", nil, &dashboard))
	assert.Equal(t, 1, dashboard.TotalCredits)
	assert.Equal(t, 3, dashboard.TotalTransactions)

	var home struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		TotalSavings        string `json:"total_savings"`
		ActiveCredits       int    `json:"active_credits"`
		RecentCredits       []any  `json:"recent_credits"`
		RecentTransactions  []any  `json:"recent_transactions"`
		UnreadNotifications int    `json:"unread_notifications"`
	}
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodGet, "/api/v1/dashboard", user, "", nil, &home))
	assert.Equal(t, "ada@example.com", home.User.Email)
	assert.Equal(t, "1900", home.TotalSavings)
	assert.Equal(t, 1, home.ActiveCredits)
	assert.Len(t, home.RecentCredits, 1)
	assert.Len(t, home.RecentTransactions, 3)
	assert.Equal(t, unread.UnreadCount, home.UnreadNotifications)

	var growth struct {
		Days         int `json:"days"`
		TotalSignups int `json:"total_signups"`
	}
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodGet, "/api/v1/admin/analytics/users?days=7", admin, "", nil, &growth))
	assert.Equal(t, 7, growth.Days)
	assert.Equal(t, 1, growth.TotalSignups)
	assert.Equal(t, fiber.StatusBadRequest, c.do(fiber.MethodGet, "/api/v1/admin/analytics/users?days=400", admin, "", nil, nil))
}

func TestAuthFlowsOverHTTP(t *testing.T) {
	c := newClient(t, false)
	token := c.registerAndLogin("ada@example.com")

	assert.Equal(t, fiber.StatusConflict, c.do(fiber.MethodPost, "/api/v1/auth/register", "", "", map[string]string{
		"email": "ada@example.com", "password": "correct-horse", "first_name": "A", "last_name": "B",
	}, nil))
	assert.Equal(t, fiber.StatusUnauthorized, c.do(fiber.MethodPost, "/api/v1/auth/login", "", "",
		map[string]string{"email": "ada@example.com", "password": "wrong-pass"}, nil))

	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodGet, "/api/v1/me", token, "", nil, &me))
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Equal(t, "CUSTOMER", me.Role)

	assert.Equal(t, fiber.StatusUnauthorized, c.do(fiber.MethodGet, "/api/v1/me", "", "", nil, nil))
	assert.Equal(t, fiber.StatusForbidden, c.do(fiber.MethodGet, "/api/v1/admin/users", token, "", nil, nil))

	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodPost, "/api/v1/auth/logout", token, "", nil, nil))
	assert.Equal(t, fiber.StatusUnauthorized, c.do(fiber.MethodGet, "/api/v1/me", token, "", nil, nil))
}

func TestHealthInMemoryMode(t *testing.T) {
	c := newClient(t, false)
	var health struct {
		Status map[string]string `json:"status"`
	}
	require.Equal(t, fiber.StatusOK, c.do(fiber.MethodGet, "/healthz", "", "", nil, &health))
	assert.Equal(t, "memory", health.Status["postgres"])
	assert.Equal(t, fiber.StatusOK, c.do(fiber.MethodGet, "/livez", "", "", nil, nil))
}

func TestSetupRequiresBackendsOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"
	err := Setup(fiber.New(), Deps{Cfg: cfg, Logger: logging.Discard()})
	assert.ErrorContains(t, err, "database is required")
}
