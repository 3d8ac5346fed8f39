package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-dpt/internal/auth"
	"github.com/nerrad567/gray-logic-dpt/internal/bridges/knx"
	"github.com/nerrad567/gray-logic-dpt/internal/datapoint"
	"github.com/nerrad567/gray-logic-dpt/internal/dpt"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/logging"
)

const testJWTSecret = "test-secret-key-at-least-32-characters-long"

// Argon2id hashing is slow, so the test accounts are built once.
var (
	testAccountsOnce sync.Once
	testAccounts     *auth.Accounts
	testAccountsErr  error
)

func sharedAccounts(t *testing.T) *auth.Accounts {
	t.Helper()
	testAccountsOnce.Do(func() {
		var list []auth.Account
		for _, role := range auth.ValidRoles {
			hash, err := auth.HashPassword(string(role) + "-pass")
			if err != nil {
				testAccountsErr = err
				return
			}
			list = append(list, auth.Account{Username: string(role), PasswordHash: hash, Role: role})
		}
		testAccounts, testAccountsErr = auth.NewAccounts(list)
	})
	if testAccountsErr != nil {
		t.Fatalf("building accounts: %v", testAccountsErr)
	}
	return testAccounts
}

// ─── Mocks ─────────────────────────────────────────────────────────

// mockRepo is an in-memory datapoint.Repository.
type mockRepo struct {
	mu      sync.Mutex
	items   map[string]datapoint.Binding
	listErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[string]datapoint.Binding)}
}

func (m *mockRepo) Get(_ context.Context, ga string) (*datapoint.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[ga]
	if !ok {
		return nil, datapoint.ErrNotFound
	}
	return &b, nil
}

func (m *mockRepo) List(_ context.Context) ([]datapoint.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []datapoint.Binding
	for _, b := range m.items {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b datapoint.Binding) int {
		return strings.Compare(a.GroupAddress, b.GroupAddress)
	})
	return out, nil
}

func (m *mockRepo) Upsert(_ context.Context, b *datapoint.Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.items[b.GroupAddress]; ok {
		b.CreatedAt = existing.CreatedAt
	} else {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	m.items[b.GroupAddress] = *b
	return nil
}

func (m *mockRepo) Delete(_ context.Context, ga string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[ga]; !ok {
		return datapoint.ErrNotFound
	}
	delete(m.items, ga)
	return nil
}

func (m *mockRepo) RecordValue(_ context.Context, ga string, _ any, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[ga]; !ok {
		return datapoint.ErrNotFound
	}
	return nil
}

type mockWrite struct {
	ga    knx.GroupAddress
	value any
	dpt   string
}

// mockBridge records writes and reads instead of sending telegrams.
type mockBridge struct {
	mu        sync.Mutex
	writes    []mockWrite
	reads     []knx.GroupAddress
	reloads   int
	writeErr  error
	readErr   error
	reloadErr error
	data      []byte
	bindings  int
}

func (m *mockBridge) Write(ga knx.GroupAddress, value any, dptID string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return nil, dptID, m.writeErr
	}
	m.writes = append(m.writes, mockWrite{ga: ga, value: value, dpt: dptID})
	if dptID == "" {
		dptID = "9.001"
	}
	return m.data, dptID, nil
}

func (m *mockBridge) Read(ga knx.GroupAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return m.readErr
	}
	m.reads = append(m.reads, ga)
	return nil
}

func (m *mockBridge) ReloadBindings(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
	return m.reloadErr
}

func (m *mockBridge) BindingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindings
}

func (m *mockBridge) Stats() knx.StatsSnapshot {
	return knx.StatsSnapshot{TelegramsRx: 7}
}

func (m *mockBridge) getReloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reloads
}

// ─── Helpers ───────────────────────────────────────────────────────

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	return Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{
				Secret:         testJWTSecret,
				AccessTokenTTL: 15,
			},
		},
		Logger:   testLogger(),
		Registry: dpt.NewStandardRegistry(),
		Bindings: newMockRepo(),
		Accounts: sharedAccounts(t),
		Version:  "test",
	}
}

// testServer creates a Server with a mock repository and bridge.
func testServer(t *testing.T) (*Server, *mockRepo, *mockBridge) {
	t.Helper()

	deps := testDeps(t)
	repo := newMockRepo()
	bridge := &mockBridge{data: []byte{0x0C, 0x33}, bindings: 2}
	deps.Bindings = repo
	deps.Bridge = bridge

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	srv.hub = NewHub(srv.wsCfg, srv.logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return srv, repo, bridge
}

func tokenFor(t *testing.T, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(auth.Account{Username: string(role), Role: role}, testJWTSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

// do sends a request through the router, authenticated as role when set.
func do(t *testing.T, h http.Handler, method, path, body string, role auth.Role) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, role))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return resp
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"no logger", func(d *Deps) { d.Logger = nil }},
		{"no registry", func(d *Deps) { d.Registry = nil }},
		{"no bindings", func(d *Deps) { d.Bindings = nil }},
		{"no accounts", func(d *Deps) { d.Accounts = nil }},
		{"no secret", func(d *Deps) { d.Security.JWT.Secret = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps(t)
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)
	w := do(t, srv.buildRouter(), http.MethodGet, "/api/v1/health", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if resp["bindings"] != float64(2) {
		t.Errorf("bindings = %v, want 2", resp["bindings"])
	}
	if resp["dpts"] != float64(len(dpt.StandardCatalogue())) {
		t.Errorf("dpts = %v, want %d", resp["dpts"], len(dpt.StandardCatalogue()))
	}
	stats, ok := resp["statistics"].(map[string]any)
	if !ok || stats["telegrams_rx"] != float64(7) {
		t.Errorf("statistics = %v", resp["statistics"])
	}
}

func TestHealth_NoBridge(t *testing.T) {
	srv, err := New(testDeps(t))
	if err != nil {
		t.Fatal(err)
	}
	resp := decodeBody(t, do(t, srv.buildRouter(), http.MethodGet, "/api/v1/health", "", ""))
	if _, ok := resp["bindings"]; ok {
		t.Error("bindings should be omitted without a bridge")
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _, _ := testServer(t)
	w := do(t, srv.buildRouter(), http.MethodGet, "/api/v1/health", "", "")

	requestID := w.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(requestID); err != nil {
		t.Errorf("X-Request-ID = %q, want a UUID", requestID)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/dpts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	deps := testDeps(t)
	deps.Config.CORS.AllowedOrigins = []string{"https://panel.local"}
	srv, err := New(deps)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q, want empty", got)
	}
}

func TestNotFound(t *testing.T) {
	srv, _, _ := testServer(t)
	w := do(t, srv.buildRouter(), http.MethodGet, "/api/v1/nonexistent", "", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Auth Tests ────────────────────────────────────────────────────

func TestAuthMiddleware_Rejects(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	expired, err := auth.GenerateAccessToken(auth.Account{Username: "u", Role: auth.RoleAdmin}, "another-secret-another-secret-12345", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"basic scheme", "Basic YWRtaW46YWRtaW4="},
		{"empty bearer", "Bearer "},
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/dpts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if resp := decodeBody(t, w); resp["code"] != ErrCodeUnauthorized {
				t.Errorf("code = %v, want %s", resp["code"], ErrCodeUnauthorized)
			}
		})
	}
}

func TestLogin_Success(t *testing.T) {
	srv, _, _ := testServer(t)
	w := do(t, srv.buildRouter(), http.MethodPost, "/api/v1/auth/login", `{"username":"operator","password":"operator-pass"}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.TokenType)
	}
	if resp.ExpiresIn != 15*60 {
		t.Errorf("expires_in = %d, want 900", resp.ExpiresIn)
	}
	if resp.Role != auth.RoleOperator {
		t.Errorf("role = %q, want operator", resp.Role)
	}

	claims, err := auth.ParseToken(resp.AccessToken, testJWTSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "operator" || claims.Role != auth.RoleOperator {
		t.Errorf("claims = %s/%s", claims.Subject, claims.Role)
	}
}

func TestLogin_Failures(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"username":"admin","password":"admin"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"root","password":"admin-pass"}`, http.StatusUnauthorized},
		{"invalid json", `{"username":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/v1/auth/login", tt.body, "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMe(t *testing.T) {
	srv, _, _ := testServer(t)
	w := do(t, srv.buildRouter(), http.MethodGet, "/api/v1/auth/me", "", auth.RoleViewer)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["username"] != "viewer" || resp["role"] != "viewer" {
		t.Errorf("identity = %v/%v", resp["username"], resp["role"])
	}
	perms, _ := resp["permissions"].([]any)
	if len(perms) != 1 || perms[0] != string(auth.PermDatapointRead) {
		t.Errorf("permissions = %v", resp["permissions"])
	}
}

func TestPermissions(t *testing.T) {
	tests := []struct {
		name   string
		role   auth.Role
		method string
		path   string
		body   string
		want   int
	}{
		{"viewer lists dpts", auth.RoleViewer, http.MethodGet, "/api/v1/dpts", "", http.StatusOK},
		{"viewer lists datapoints", auth.RoleViewer, http.MethodGet, "/api/v1/datapoints", "", http.StatusOK},
		{"viewer cannot write", auth.RoleViewer, http.MethodPost, "/api/v1/datapoints/1/2/3/write", `{"value":1}`, http.StatusForbidden},
		{"viewer cannot bind", auth.RoleViewer, http.MethodPut, "/api/v1/datapoints/1/2/3", `{"dpt":"1.001"}`, http.StatusForbidden},
		{"operator writes", auth.RoleOperator, http.MethodPost, "/api/v1/datapoints/1/2/3/write", `{"value":1}`, http.StatusAccepted},
		{"operator reads", auth.RoleOperator, http.MethodPost, "/api/v1/datapoints/1/2/3/read", "", http.StatusAccepted},
		{"operator cannot bind", auth.RoleOperator, http.MethodPut, "/api/v1/datapoints/1/2/3", `{"dpt":"1.001"}`, http.StatusForbidden},
		{"operator cannot reload", auth.RoleOperator, http.MethodPost, "/api/v1/datapoints/reload", "", http.StatusForbidden},
		{"admin binds", auth.RoleAdmin, http.MethodPut, "/api/v1/datapoints/1/2/3", `{"dpt":"1.001"}`, http.StatusOK},
		{"admin reloads", auth.RoleAdmin, http.MethodPost, "/api/v1/datapoints/reload", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := testServer(t)
			w := do(t, srv.buildRouter(), tt.method, tt.path, tt.body, tt.role)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

// ─── DPT Catalogue Tests ───────────────────────────────────────────

func TestListDPTs(t *testing.T) {
	srv, _, _ := testServer(t)
	w := do(t, srv.buildRouter(), http.MethodGet, "/api/v1/dpts", "", auth.RoleViewer)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		DPTs  []dptResponse `json:"dpts"`
		Count int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != len(dpt.StandardCatalogue()) || len(resp.DPTs) != resp.Count {
		t.Fatalf("count = %d, dpts = %d", resp.Count, len(resp.DPTs))
	}
	if resp.DPTs[0].ID != "DPT1" || resp.DPTs[0].Family != "boolean" {
		t.Errorf("first = %+v, want DPT1 boolean", resp.DPTs[0])
	}
	for i := 1; i < len(resp.DPTs); i++ {
		if resp.DPTs[i].Main <= resp.DPTs[i-1].Main {
			t.Errorf("dpts not ordered by main number at %d", i)
		}
	}
}

func TestGetDPT(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	w := do(t, router, http.MethodGet, "/api/v1/dpts/dpt9.001", "", auth.RoleViewer)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp dptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "DPT9" || resp.ByteLength != 2 || resp.Family != "float16" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Resolved == nil || resp.Resolved.Unit != "°C" {
		t.Errorf("resolved = %+v, want unit °C", resp.Resolved)
	}

	tests := []struct {
		id   string
		want int
	}{
		{"5", http.StatusOK},
		{"99.001", http.StatusNotFound},
		{"nine", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := do(t, router, http.MethodGet, "/api/v1/dpts/"+tt.id, "", auth.RoleViewer); w.Code != tt.want {
			t.Errorf("GET /dpts/%s status = %d, want %d", tt.id, w.Code, tt.want)
		}
	}
}

func TestEncode(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name     string
		id       string
		body     string
		want     int
		wantData string
	}{
		{"temperature", "9.001", `{"value":21.5}`, http.StatusOK, "0C33"},
		{"scaling", "5.001", `{"value":50}`, http.StatusOK, "80"},
		{"switch", "1.001", `{"value":true}`, http.StatusOK, "01"},
		{"dimming", "3.007", `{"value":{"direction":1,"magnitude":3}}`, http.StatusOK, "0B"},
		{"unsupported character", "4.001", `{"value":"€"}`, http.StatusUnprocessableEntity, ""},
		{"wrong shape", "9.001", `{"value":"warm"}`, http.StatusUnprocessableEntity, ""},
		{"missing value", "9.001", `{}`, http.StatusBadRequest, ""},
		{"invalid json", "9.001", `{`, http.StatusBadRequest, ""},
		{"unknown type", "99", `{"value":1}`, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/v1/dpts/"+tt.id+"/encode", tt.body, auth.RoleViewer)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
			if tt.wantData == "" {
				return
			}
			if resp := decodeBody(t, w); resp["data"] != tt.wantData {
				t.Errorf("data = %v, want %s", resp["data"], tt.wantData)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	w := do(t, router, http.MethodPost, "/api/v1/dpts/9.001/decode", `{"data":"0c33"}`, auth.RoleViewer)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	if resp["value"] != 21.5 {
		t.Errorf("value = %v, want 21.5", resp["value"])
	}
	if resp["data"] != "0C33" || resp["dpt"] != "DPT9.001" || resp["unit"] != "°C" {
		t.Errorf("resp = %v", resp)
	}

	w = do(t, router, http.MethodPost, "/api/v1/dpts/3.007/decode", `{"data":"0B"}`, auth.RoleViewer)
	if w.Code != http.StatusOK {
		t.Fatalf("dimming status = %d", w.Code)
	}
	value, _ := decodeBody(t, w)["value"].(map[string]any)
	if value["direction"] != float64(1) || value["magnitude"] != float64(3) {
		t.Errorf("dimming value = %v", value)
	}

	failures := []struct {
		name string
		body string
		want int
	}{
		{"bad hex", `{"data":"zz"}`, http.StatusBadRequest},
		{"wrong length", `{"data":"01"}`, http.StatusUnprocessableEntity},
		{"empty", `{"data":""}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, http.MethodPost, "/api/v1/dpts/9.001/decode", tt.body, auth.RoleViewer); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

// ─── Datapoint Binding Tests ───────────────────────────────────────

func TestDatapointLifecycle(t *testing.T) {
	srv, repo, bridge := testServer(t)
	router := srv.buildRouter()

	w := do(t, router, http.MethodPut, "/api/v1/datapoints/1/2/3",
		`{"dpt":"dpt09.001","name":" Lounge temperature ","measurement":"temperature"}`, auth.RoleAdmin)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var created datapoint.Binding
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.GroupAddress != "1/2/3" || created.DPT != "9.001" || created.Name != "Lounge temperature" {
		t.Errorf("created = %+v", created)
	}
	if bridge.getReloads() != 1 {
		t.Errorf("reloads = %d, want 1", bridge.getReloads())
	}

	w = do(t, router, http.MethodGet, "/api/v1/datapoints/1/2/3", "", auth.RoleViewer)
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", w.Code)
	}

	w = do(t, router, http.MethodGet, "/api/v1/datapoints", "", auth.RoleViewer)
	if resp := decodeBody(t, w); resp["count"] != float64(1) {
		t.Errorf("count = %v, want 1", resp["count"])
	}

	w = do(t, router, http.MethodDelete, "/api/v1/datapoints/1/2/3", "", auth.RoleAdmin)
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", w.Code)
	}
	if _, err := repo.Get(context.Background(), "1/2/3"); !errors.Is(err, datapoint.ErrNotFound) {
		t.Errorf("binding still stored: %v", err)
	}
	if bridge.getReloads() != 2 {
		t.Errorf("reloads = %d, want 2", bridge.getReloads())
	}

	if w := do(t, router, http.MethodGet, "/api/v1/datapoints/1/2/3", "", auth.RoleViewer); w.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/api/v1/datapoints/1/2/3", "", auth.RoleAdmin); w.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", w.Code)
	}
}

func TestListDatapoints_Empty(t *testing.T) {
	srv, _, _ := testServer(t)
	w := do(t, srv.buildRouter(), http.MethodGet, "/api/v1/datapoints", "", auth.RoleViewer)

	resp := decodeBody(t, w)
	list, ok := resp["datapoints"].([]any)
	if !ok || len(list) != 0 {
		t.Errorf("datapoints = %v, want empty array", resp["datapoints"])
	}
}

func TestListDatapoints_StoreError(t *testing.T) {
	srv, repo, _ := testServer(t)
	repo.listErr = errors.New("disk full")

	w := do(t, srv.buildRouter(), http.MethodGet, "/api/v1/datapoints", "", auth.RoleViewer)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestPutDatapoint_Invalid(t *testing.T) {
	srv, _, bridge := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown dpt", "/api/v1/datapoints/1/2/3", `{"dpt":"99.001"}`, http.StatusBadRequest},
		{"malformed dpt", "/api/v1/datapoints/1/2/3", `{"dpt":"nine"}`, http.StatusBadRequest},
		{"missing dpt", "/api/v1/datapoints/1/2/3", `{"name":"x"}`, http.StatusBadRequest},
		{"main out of range", "/api/v1/datapoints/40/0/0", `{"dpt":"1.001"}`, http.StatusBadRequest},
		{"invalid json", "/api/v1/datapoints/1/2/3", `[`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, http.MethodPut, tt.path, tt.body, auth.RoleAdmin); w.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
	if bridge.getReloads() != 0 {
		t.Errorf("reloads = %d, want 0", bridge.getReloads())
	}
}

// ─── Bus Write/Read Tests ──────────────────────────────────────────

func TestWriteDatapoint(t *testing.T) {
	srv, _, bridge := testServer(t)

	w := do(t, srv.buildRouter(), http.MethodPost, "/api/v1/datapoints/5/0/1/write", `{"value":21.5}`, auth.RoleOperator)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["raw"] != "0C33" || resp["dpt"] != "9.001" || resp["address"] != "5/0/1" {
		t.Errorf("resp = %v", resp)
	}
	if len(bridge.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(bridge.writes))
	}
	got := bridge.writes[0]
	if got.ga != (knx.GroupAddress{Main: 5, Middle: 0, Sub: 1}) || got.value != 21.5 || got.dpt != "" {
		t.Errorf("write = %+v", got)
	}
}

func TestWriteDatapoint_Override(t *testing.T) {
	srv, _, bridge := testServer(t)

	w := do(t, srv.buildRouter(), http.MethodPost, "/api/v1/datapoints/3/0/1/write", `{"value":50,"dpt":"5.001"}`, auth.RoleOperator)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if bridge.writes[0].dpt != "5.001" {
		t.Errorf("dpt = %q, want 5.001", bridge.writes[0].dpt)
	}
}

func TestWriteDatapoint_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		writeErr error
		want     int
	}{
		{"not bound", "/api/v1/datapoints/1/2/3/write", `{"value":1}`, fmt.Errorf("%w: 1/2/3", knx.ErrNotBound), http.StatusNotFound},
		{"unknown dpt", "/api/v1/datapoints/1/2/3/write", `{"value":1,"dpt":"99"}`, fmt.Errorf("%w: 99", dpt.ErrUnknownType), http.StatusBadRequest},
		{"bad value", "/api/v1/datapoints/1/2/3/write", `{"value":"warm"}`, fmt.Errorf("%w: x", knx.ErrEncodingFailed), http.StatusUnprocessableEntity},
		{"stopped", "/api/v1/datapoints/1/2/3/write", `{"value":1}`, knx.ErrStopped, http.StatusServiceUnavailable},
		{"transport", "/api/v1/datapoints/1/2/3/write", `{"value":1}`, fmt.Errorf("%w: broker gone", knx.ErrTelegramFailed), http.StatusServiceUnavailable},
		{"missing value", "/api/v1/datapoints/1/2/3/write", `{}`, nil, http.StatusBadRequest},
		{"middle out of range", "/api/v1/datapoints/1/9/3/write", `{"value":1}`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, bridge := testServer(t)
			bridge.writeErr = tt.writeErr

			w := do(t, srv.buildRouter(), http.MethodPost, tt.path, tt.body, auth.RoleOperator)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestReadDatapoint(t *testing.T) {
	srv, _, bridge := testServer(t)

	w := do(t, srv.buildRouter(), http.MethodPost, "/api/v1/datapoints/2/0/1/read", "", auth.RoleOperator)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if len(bridge.reads) != 1 || bridge.reads[0].String() != "2/0/1" {
		t.Errorf("reads = %v", bridge.reads)
	}

	bridge.readErr = knx.ErrStopped
	if w := do(t, srv.buildRouter(), http.MethodPost, "/api/v1/datapoints/2/0/1/read", "", auth.RoleOperator); w.Code != http.StatusServiceUnavailable {
		t.Errorf("stopped status = %d, want 503", w.Code)
	}
}

func TestBusEndpoints_NoBridge(t *testing.T) {
	srv, err := New(testDeps(t))
	if err != nil {
		t.Fatal(err)
	}
	router := srv.buildRouter()

	for _, path := range []string{
		"/api/v1/datapoints/1/2/3/write",
		"/api/v1/datapoints/1/2/3/read",
	} {
		if w := do(t, router, http.MethodPost, path, `{"value":1}`, auth.RoleAdmin); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, w.Code)
		}
	}
	if w := do(t, router, http.MethodPost, "/api/v1/datapoints/reload", "", auth.RoleAdmin); w.Code != http.StatusServiceUnavailable {
		t.Errorf("reload status = %d, want 503", w.Code)
	}

	// Binding changes still work without a bridge.
	if w := do(t, router, http.MethodPut, "/api/v1/datapoints/1/2/3", `{"dpt":"1.001"}`, auth.RoleAdmin); w.Code != http.StatusOK {
		t.Errorf("PUT status = %d, want 200", w.Code)
	}
}

func TestReloadBindings_Error(t *testing.T) {
	srv, _, bridge := testServer(t)
	bridge.reloadErr = errors.New("database locked")

	if w := do(t, srv.buildRouter(), http.MethodPost, "/api/v1/datapoints/reload", "", auth.RoleAdmin); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ─── Ticket Tests ──────────────────────────────────────────────────

func TestWSTicket_SingleUse(t *testing.T) {
	srv, _, _ := testServer(t)

	w := do(t, srv.buildRouter(), http.MethodPost, "/api/v1/auth/ws-ticket", "", auth.RoleOperator)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	ticket, ok := decodeBody(t, w)["ticket"].(string)
	if !ok || ticket == "" {
		t.Fatal("expected ticket to be a non-empty string")
	}

	entry, ok := srv.validateTicket(ticket)
	if !ok {
		t.Fatal("ticket should be valid on first use")
	}
	if entry.username != "operator" || entry.role != auth.RoleOperator {
		t.Errorf("entry = %+v", entry)
	}

	if _, ok := srv.validateTicket(ticket); ok {
		t.Error("ticket should not be valid on second use")
	}
}

func TestWSTicket_RequiresAuth(t *testing.T) {
	srv, _, _ := testServer(t)
	if w := do(t, srv.buildRouter(), http.MethodPost, "/api/v1/auth/ws-ticket", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestWSTicket_Expiry(t *testing.T) {
	srv, _, _ := testServer(t)

	ticket := generateTicket()
	srv.tickets.mu.Lock()
	srv.tickets.tickets[ticket] = ticketEntry{
		username:  "viewer",
		role:      auth.RoleViewer,
		expiresAt: time.Now().Add(-1 * time.Second),
	}
	srv.tickets.mu.Unlock()

	if _, ok := srv.validateTicket(ticket); ok {
		t.Error("expired ticket should not be valid")
	}
}

func TestTicketStore_CleanExpired(t *testing.T) {
	store := newTicketStore()
	store.tickets["old"] = ticketEntry{expiresAt: time.Now().Add(-time.Second)}
	store.tickets["new"] = ticketEntry{expiresAt: time.Now().Add(time.Minute)}

	store.cleanExpired()

	if _, ok := store.tickets["old"]; ok {
		t.Error("expired ticket should be removed")
	}
	if _, ok := store.tickets["new"]; !ok {
		t.Error("live ticket should be kept")
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

// testClient registers a client following the given state channels.
func testClient(t *testing.T, hub *Hub, channels ...string) *WSClient {
	t.Helper()
	c := &WSClient{
		hub:    hub,
		send:   make(chan []byte, wsSendBufferSize),
		filter: stateFilter{addresses: make(map[knx.GroupAddress]struct{})},
	}
	for _, ch := range channels {
		ga, all, ok := parseStateChannel(ch)
		if !ok {
			t.Fatalf("parseStateChannel(%q) rejected", ch)
		}
		if all {
			c.filter.all = true
		} else {
			c.filter.addresses[ga] = struct{}{}
		}
	}
	hub.Register(c)
	return c
}

func TestParseStateChannel(t *testing.T) {
	tests := []struct {
		channel string
		wantGA  string
		wantAll bool
		wantOK  bool
	}{
		{"datapoint.state", "", true, true},
		{"datapoint.state:1/2/3", "1/2/3", false, true},
		{"datapoint.state:31/7/255", "31/7/255", false, true},
		{"datapoint.state:", "", false, false},
		{"datapoint.state:1/2/999", "", false, false},
		{"datapoint.states", "", false, false},
		{"device.state", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			ga, all, ok := parseStateChannel(tt.channel)
			if ok != tt.wantOK || all != tt.wantAll {
				t.Fatalf("parseStateChannel() = (%v, %v, %v), want all=%v ok=%v", ga, all, ok, tt.wantAll, tt.wantOK)
			}
			if tt.wantGA != "" && ga.String() != tt.wantGA {
				t.Errorf("ga = %s, want %s", ga, tt.wantGA)
			}
		})
	}
}

func TestHub_PublishState(t *testing.T) {
	hub := newTestHub(t)

	all := testClient(t, hub, ChannelDatapointState)
	one := testClient(t, hub, StateChannel("5/0/1"))
	other := testClient(t, hub, StateChannel("2/0/1"))

	hub.PublishState(knx.StateMessage{Address: "5/0/1", DPT: "9.001", Value: 21.5, Raw: "0C33"})

	for name, c := range map[string]*WSClient{"all": all, "one": one} {
		select {
		case msg := <-c.send:
			var wsMsg struct {
				EventType string           `json:"event_type"`
				Payload   knx.StateMessage `json:"payload"`
			}
			if err := json.Unmarshal(msg, &wsMsg); err != nil {
				t.Fatalf("%s: unmarshal: %v", name, err)
			}
			if wsMsg.EventType != ChannelDatapointState {
				t.Errorf("%s: event_type = %q, want %q", name, wsMsg.EventType, ChannelDatapointState)
			}
			if wsMsg.Payload.Address != "5/0/1" || wsMsg.Payload.Value != 21.5 {
				t.Errorf("%s: payload = %+v", name, wsMsg.Payload)
			}
		case <-time.After(time.Second):
			t.Errorf("%s: timed out waiting for state", name)
		}
	}

	select {
	case <-other.send:
		t.Error("client following 2/0/1 received a 5/0/1 state")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_PublishState_OncePerClient(t *testing.T) {
	hub := newTestHub(t)
	both := testClient(t, hub, ChannelDatapointState, StateChannel("1/2/3"))

	hub.PublishState(knx.StateMessage{Address: "1/2/3", DPT: "1.001", Value: true, Raw: "01"})

	if got := len(both.send); got != 1 {
		t.Errorf("queued %d events, want 1", got)
	}
}

func TestHub_PublishState_InvalidAddress(t *testing.T) {
	hub := newTestHub(t)
	all := testClient(t, hub, ChannelDatapointState)

	hub.PublishState(knx.StateMessage{Address: "not-an-address"})

	if got := len(all.send); got != 0 {
		t.Errorf("queued %d events for an invalid address, want 0", got)
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := newTestHub(t)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := testClient(t, hub)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}

	// A second unregister must not close the channel twice.
	hub.Unregister(client)
}

// ─── WebSocket Integration Tests ───────────────────────────────────

// connectWebSocket logs in as role, requests a ticket, and dials the hub.
func connectWebSocket(t *testing.T, ts *httptest.Server, role auth.Role) *websocket.Conn {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/auth/ws-ticket", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, role))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("ws-ticket request failed: %v", err)
	}
	defer resp.Body.Close()

	var ticketResult struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ticketResult); err != nil {
		t.Fatalf("decode ticket response: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?ticket=" + ticketResult.Ticket
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket connect failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestWebSocket_SubscribeAndReceiveState(t *testing.T) {
	srv, _, _ := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	ws := connectWebSocket(t, ts, auth.RoleViewer)

	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{StateChannel("1/2/3")}},
	}); err != nil {
		t.Fatalf("write subscribe message: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var response WSMessage
	if err := ws.ReadJSON(&response); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if response.Type != WSTypeResponse || response.ID != "sub-1" {
		t.Errorf("response = %s/%s, want response/sub-1", response.Type, response.ID)
	}
	if srv.hub.ClientCount() != 1 {
		t.Errorf("hub client count = %d, want 1", srv.hub.ClientCount())
	}

	srv.hub.PublishState(knx.StateMessage{Address: "1/2/3", DPT: "1.001", Value: true, Raw: "01"})

	var event WSMessage
	if err := ws.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != ChannelDatapointState {
		t.Errorf("event = %s/%s", event.Type, event.EventType)
	}

	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeUnsubscribe,
		ID:      "unsub-1",
		Payload: WSSubscribePayload{Channels: []string{StateChannel("1/2/3")}},
	}); err != nil {
		t.Fatalf("write unsubscribe message: %v", err)
	}
	if err := ws.ReadJSON(&response); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if response.Type != WSTypeResponse || response.ID != "unsub-1" {
		t.Errorf("response = %s/%s, want response/unsub-1", response.Type, response.ID)
	}
}

func TestWebSocket_SubscribeUnknownChannel(t *testing.T) {
	srv, _, _ := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	ws := connectWebSocket(t, ts, auth.RoleViewer)
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-2",
		Payload: WSSubscribePayload{Channels: []string{StateChannel("1/2/3"), "scene.activated"}},
	}); err != nil {
		t.Fatalf("write subscribe message: %v", err)
	}

	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.Type != WSTypeError || resp.ID != "sub-2" {
		t.Fatalf("response = %s/%s, want error/sub-2", resp.Type, resp.ID)
	}

	// The valid channel in the rejected request must not have been applied.
	srv.hub.PublishState(knx.StateMessage{Address: "1/2/3", DPT: "1.001", Value: true, Raw: "01"})
	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "ping-2"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if resp.Type != WSTypePong {
		t.Errorf("next message = %s, want pong", resp.Type)
	}
}

func TestWebSocket_PingAndErrors(t *testing.T) {
	srv, _, _ := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	ws := connectWebSocket(t, ts, auth.RoleAdmin)
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "ping-1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if resp.Type != WSTypePong || resp.ID != "ping-1" {
		t.Errorf("response = %s/%s, want pong/ping-1", resp.Type, resp.ID)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write invalid message: %v", err)
	}
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read error response: %v", err)
	}
	if resp.Type != WSTypeError {
		t.Errorf("response type = %s, want error", resp.Type)
	}

	if err := ws.WriteJSON(WSMessage{Type: "unknown_type", ID: "x"}); err != nil {
		t.Fatalf("write unknown type: %v", err)
	}
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read error response: %v", err)
	}
	if resp.Type != WSTypeError || resp.ID != "x" {
		t.Errorf("response = %s/%s, want error/x", resp.Type, resp.ID)
	}
}

func TestWebSocket_Rejected(t *testing.T) {
	srv, _, _ := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	for _, url := range []string{base, base + "?ticket=invalid-ticket"} {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatalf("Dial(%s) should fail", url)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Dial(%s) response = %v, want 401", url, resp)
		}
	}
}

// ─── Lifecycle Tests ───────────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	deps := testDeps(t)
	port := 19180
	deps.Config.Port = port

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() should fail before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := srv.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error: %v", err)
	}
	if srv.Hub() == nil {
		t.Error("Start() should create a hub")
	}

	addr := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", port)
	resp, err := http.Get(addr)
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := http.Get(addr); err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestServer_InjectedHub(t *testing.T) {
	deps := testDeps(t)
	hub := newTestHub(t)
	deps.Hub = hub

	srv, err := New(deps)
	if err != nil {
		t.Fatal(err)
	}
	if srv.Hub() != hub {
		t.Error("Hub() should return the injected hub")
	}
}

func TestServer_CloseBeforeStart(t *testing.T) {
	srv, err := New(testDeps(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
