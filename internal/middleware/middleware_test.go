package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/config"
	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/permission"
	"github.com/iliyamo/party-logger/internal/utils"
)

type fakeSessions map[string]*model.User

func (f fakeSessions) Validate(_ context.Context, token string) (*model.Session, *model.User) {
	u, ok := f[token]
	if !ok {
		return nil, nil
	}
	return &model.Session{ID: token, UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}, u
}

type fakeUsers map[uint64]*model.User

func (f fakeUsers) Get(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func userWith(id uint64, perms ...string) *model.User {
	role := &model.Role{ID: 1, Name: "custom"}
	for _, p := range perms {
		role.Permissions = append(role.Permissions, model.Permission{Name: p})
	}
	return &model.User{ID: id, Username: "u", IsActive: true, RoleID: 1, Role: role}
}

const secret = "test-secret"

func newServer(sessions fakeSessions, users fakeUsers, guard echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(Authenticate(AuthConfig{Sessions: sessions, Users: users, JWTSecret: secret}))
	e.GET("/who", func(c echo.Context) error {
		u := CurrentUser(c)
		if u == nil {
			return c.String(http.StatusOK, "anon")
		}
		return c.String(http.StatusOK, u.Username)
	})
	e.GET("/guarded", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, guard)
	return e
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateCookie(t *testing.T) {
	alice := userWith(1)
	alice.Username = "alice"
	e := newServer(fakeSessions{"good": alice}, fakeUsers{}, RequireAuth())

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	rec := do(e, req)
	if rec.Body.String() != "alice" {
		t.Fatalf("body = %q, want alice", rec.Body.String())
	}
	ck := rec.Result().Cookies()
	if len(ck) != 1 || ck[0].Value != "good" || !ck[0].HttpOnly || ck[0].SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie not re-issued: %+v", ck)
	}

	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
	rec = do(e, req)
	if rec.Body.String() != "anon" {
		t.Fatalf("stale cookie authenticated: %q", rec.Body.String())
	}
	ck = rec.Result().Cookies()
	if len(ck) != 1 || ck[0].Value != "" || ck[0].MaxAge >= 0 {
		t.Fatalf("stale cookie not cleared: %+v", ck)
	}
}

func TestAuthenticateBearer(t *testing.T) {
	bob := userWith(7)
	bob.Username = "bob"
	off := userWith(8)
	off.IsActive = false
	e := newServer(fakeSessions{}, fakeUsers{7: bob, 8: off}, RequireAuth())

	bearer := func(id uint64, key string) string {
		tok, err := utils.NewAccessToken(key, id, time.Minute, time.Now())
		if err != nil {
			t.Fatalf("NewAccessToken: %v", err)
		}
		return "Bearer " + tok.Token
	}
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", bearer(7, secret), "bob"},
		{"inactive user", bearer(8, secret), "anon"},
		{"unknown user", bearer(99, secret), "anon"},
		{"wrong key", bearer(7, "other"), "anon"},
		{"garbage", "Bearer abc.def.ghi", "anon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			req.Header.Set(echo.HeaderAuthorization, tt.header)
			if got := do(e, req).Body.String(); got != tt.want {
				t.Fatalf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	viewer := userWith(1, permission.ViewStats)
	other := userWith(2, permission.ViewGuests)
	e := newServer(fakeSessions{"v": viewer, "o": other}, fakeUsers{}, RequirePermission(permission.ViewStats, permission.ViewAdvancedStats))

	tests := []struct {
		name     string
		cookie   string
		html     bool
		status   int
		location string
	}{
		{"allowed", "v", false, http.StatusOK, ""},
		{"forbidden", "o", false, http.StatusForbidden, ""},
		{"anonymous", "", false, http.StatusUnauthorized, ""},
		{"forbidden page", "o", true, http.StatusFound, "/"},
		{"anonymous page", "", true, http.StatusFound, "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			if tt.html {
				req.Header.Set(echo.HeaderAccept, "text/html,application/xhtml+xml")
			}
			rec := do(e, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if loc := rec.Header().Get(echo.HeaderLocation); loc != tt.location {
				t.Fatalf("location = %q, want %q", loc, tt.location)
			}
		})
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Fatalf("decoded %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0}); ok {
		t.Fatal("truncated payload accepted")
	}
}

func TestCacheable(t *testing.T) {
	degraded := http.Header{}
	degraded.Set(HeaderDegraded, "1")
	tests := []struct {
		name   string
		status int
		over   bool
		hdr    http.Header
		want   bool
	}{
		{"ok", http.StatusOK, false, http.Header{}, true},
		{"error status", http.StatusInternalServerError, false, http.Header{}, false},
		{"too large", http.StatusOK, true, http.Header{}, false},
		{"degraded figures", http.StatusOK, false, degraded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cacheable(tt.status, tt.over, tt.hdr); got != tt.want {
				t.Fatalf("cacheable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRateKeyAndDisabledMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/login")

	key := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}, c)
	if key != "rl:ip:10.0.0.9:route:POST /login" {
		t.Fatalf("key = %q", key)
	}
	if !strings.HasSuffix(buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c), ":user:anon:route:POST /login") {
		t.Fatal("default strategy lost the user part")
	}

	called := false
	h := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)(func(echo.Context) error {
		called = true
		return nil
	})
	if err := h(c); err != nil || !called {
		t.Fatal("limiter without Redis blocked the request")
	}
}
