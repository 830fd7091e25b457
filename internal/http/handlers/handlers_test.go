package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mentorway/mentorway-be/internal/auth"
	"github.com/mentorway/mentorway-be/internal/booking"
	"github.com/mentorway/mentorway-be/internal/config"
	"github.com/mentorway/mentorway-be/internal/middleware"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/notify"
	"github.com/mentorway/mentorway-be/internal/payments"
	"github.com/mentorway/mentorway-be/internal/storage/memory"
)

type testEnv struct {
	ts     *httptest.Server
	store  *memory.Store
	tokens *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	tokens := auth.NewTokenManager("test-secret", "mentorway", time.Hour)
	cfg := config.Config{InitBalance: 100}

	mux := http.NewServeMux()
	NewAuthHandler(store, tokens, &cfg).Register(mux)

	bookingSvc := booking.NewService(store, store, &notify.Recorder{}, payments.NewWalletRefunder(store))

	protected := http.NewServeMux()
	NewUsersHandler(store).Register(protected)
	NewSessionsHandler(bookingSvc).Register(protected)
	NewGroupsHandler(store).Register(protected)
	mux.Handle("/api/", middleware.RequireAuth(tokens, protected))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, store: store, tokens: tokens}
}

func (e *testEnv) seedUser(t *testing.T, name string, role models.Role, rate, balance float64) (models.User, string) {
	t.Helper()
	user, err := e.store.CreateUser(context.Background(), models.User{
		Name:          name,
		Email:         name + "@example.com",
		Role:          role,
		Rate:          rate,
		WalletBalance: balance,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	token, err := e.tokens.Generate(user)
	if err != nil {
		t.Fatalf("token for %s: %v", name, err)
	}
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeData(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if dst != nil {
		if err := json.Unmarshal(envelope.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestSignupAndLogin(t *testing.T) {
	e := newTestEnv(t)

	signup := map[string]any{
		"name": "Maya", "email": "maya@example.com",
		"password": "strongpass1", "role": "Mentor", "rate": 80,
	}
	resp := e.do(t, http.MethodPost, "/api/auth/signup", "", signup)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}
	var created models.User
	decodeData(t, resp, &created)
	if created.ID == 0 || created.WalletBalance != 100 {
		t.Fatalf("created = %+v, want seeded wallet", created)
	}

	if resp := e.do(t, http.MethodPost, "/api/auth/signup", "", signup); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d, want 409", resp.StatusCode)
	}

	login := map[string]string{"email": "maya@example.com", "password": "strongpass1"}
	resp = e.do(t, http.MethodPost, "/api/auth/login", "", login)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var loggedIn struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeData(t, resp, &loggedIn)
	if loggedIn.Token == "" || loggedIn.User.ID != created.ID {
		t.Fatalf("login response = %+v", loggedIn)
	}
	if _, err := e.tokens.Parse(loggedIn.Token); err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}

	badLogin := map[string]string{"email": "maya@example.com", "password": "wrong"}
	if resp := e.do(t, http.MethodPost, "/api/auth/login", "", badLogin); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", resp.StatusCode)
	}
}

func TestSignupValidation(t *testing.T) {
	e := newTestEnv(t)
	cases := []map[string]any{
		{"name": "", "email": "a@example.com", "password": "strongpass1", "role": "Client"},
		{"name": "A", "email": "not-an-email", "password": "strongpass1", "role": "Client"},
		{"name": "A", "email": "a@example.com", "password": "short", "role": "Client"},
		{"name": "A", "email": "a@example.com", "password": "strongpass1", "role": "superuser"},
		{"name": "A", "email": "a@example.com", "password": "strongpass1", "role": "Mentor", "rate": 0},
	}
	for i, body := range cases {
		if resp := e.do(t, http.MethodPost, "/api/auth/signup", "", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, resp.StatusCode)
		}
	}
}

func TestBookingEndpoint(t *testing.T) {
	e := newTestEnv(t)
	mentor, _ := e.seedUser(t, "mentor", models.RoleMentor, 100, 0)
	_, clientToken := e.seedUser(t, "client", models.RoleClient, 0, 500)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	body := map[string]any{
		"mentorId":  mentor.ID,
		"startTime": start.Format(time.RFC3339),
		"hours":     2,
		"title":     "Intro call",
	}

	if resp := e.do(t, http.MethodPost, "/api/session/booking", "", body); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated booking status = %d, want 401", resp.StatusCode)
	}

	resp := e.do(t, http.MethodPost, "/api/session/booking", clientToken, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("booking status = %d, want 201", resp.StatusCode)
	}
	var out struct {
		SessionID int64 `json:"sessionId"`
	}
	decodeData(t, resp, &out)
	if out.SessionID == 0 {
		t.Fatal("booking response missing sessionId")
	}

	// The same slot again conflicts.
	if resp := e.do(t, http.MethodPost, "/api/session/booking", clientToken, body); resp.StatusCode != http.StatusConflict {
		t.Fatalf("overlap status = %d, want 409", resp.StatusCode)
	}

	body["startTime"] = time.Now().UTC().Add(10 * time.Minute).Format(time.RFC3339)
	if resp := e.do(t, http.MethodPost, "/api/session/booking", clientToken, body); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short lead time status = %d, want 400", resp.StatusCode)
	}
}

func TestCancelEndpoint(t *testing.T) {
	e := newTestEnv(t)
	mentor, mentorToken := e.seedUser(t, "mentor", models.RoleMentor, 100, 0)
	_, clientToken := e.seedUser(t, "client", models.RoleClient, 0, 500)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	resp := e.do(t, http.MethodPost, "/api/session/booking", clientToken, map[string]any{
		"mentorId": mentor.ID, "startTime": start.Format(time.RFC3339), "hours": 2,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("booking status = %d", resp.StatusCode)
	}
	var out struct {
		SessionID int64 `json:"sessionId"`
	}
	decodeData(t, resp, &out)

	cancelPath := fmt.Sprintf("/api/session/cancel/%d", out.SessionID)

	if resp := e.do(t, http.MethodPatch, cancelPath, clientToken, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("client cancel status = %d, want 403", resp.StatusCode)
	}

	resp = e.do(t, http.MethodPatch, cancelPath, mentorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	var canceled struct {
		Session models.Session `json:"data"`
		Refund  struct {
			Amount float64 `json:"amount"`
		} `json:"refundResult"`
	}
	decodeData(t, resp, &canceled)
	if canceled.Session.Status != models.StatusCanceled || canceled.Refund.Amount != 200 {
		t.Fatalf("cancel response = %+v", canceled)
	}

	if resp := e.do(t, http.MethodPatch, cancelPath, mentorToken, nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want 409", resp.StatusCode)
	}
}

func TestAvailabilityEndpoints(t *testing.T) {
	e := newTestEnv(t)
	_, mentorToken := e.seedUser(t, "mentor", models.RoleMentor, 100, 0)
	_, clientToken := e.seedUser(t, "client", models.RoleClient, 0, 500)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	body := map[string]any{"times": []map[string]string{{
		"start": start.Format(time.RFC3339),
		"end":   start.Add(2 * time.Hour).Format(time.RFC3339),
	}}}

	if resp := e.do(t, http.MethodPost, "/api/user/availability", clientToken, body); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("client set availability status = %d, want 403", resp.StatusCode)
	}
	if resp := e.do(t, http.MethodPost, "/api/user/availability", mentorToken, body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("set availability status = %d, want 201", resp.StatusCode)
	}
	// An overlapping window is rejected.
	if resp := e.do(t, http.MethodPost, "/api/user/availability", mentorToken, body); resp.StatusCode != http.StatusConflict {
		t.Fatalf("overlapping window status = %d, want 409", resp.StatusCode)
	}

	resp := e.do(t, http.MethodGet, "/api/user/availability", mentorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get availability status = %d", resp.StatusCode)
	}
	var windows []models.AvailabilityWindow
	decodeData(t, resp, &windows)
	if len(windows) != 1 {
		t.Fatalf("windows = %d, want 1", len(windows))
	}
}
