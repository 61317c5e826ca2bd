package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/ewhitaker/rallyup/internal/database"
	"github.com/ewhitaker/rallyup/internal/model"
	"github.com/ewhitaker/rallyup/internal/photostore"
	"github.com/ewhitaker/rallyup/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, photostore.New(photostore.Config{}), logger)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := store.NewUserStore(db)
	if _, err := users.Create("admin@example.com", "Admin", string(hash), model.RoleAdmin, nil); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, err := users.Create("student@example.com", "Student", string(hash), model.RoleStudent, nil); err != nil {
		t.Fatalf("create student: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func login(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"email": email, "password": "secret"})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if result.Token == "" {
		t.Fatal("login returned empty token")
	}
	return result.Token
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/teams")
	if err != nil {
		t.Fatalf("get teams: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin@example.com")

	resp := doJSON(t, ts, http.MethodGet, "/api/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	var user model.User
	decodeBody(t, resp, &user)
	if user.Email != "admin@example.com" {
		t.Errorf("me email = %q", user.Email)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("me role = %q", user.Role)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "wrong"})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestStudentCannotManageTeams(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "student@example.com")

	resp := doJSON(t, ts, http.MethodPost, "/api/teams", token, map[string]string{"name": "Rogues"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestDonationFlowUpdatesLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin@example.com")

	resp := doJSON(t, ts, http.MethodPost, "/api/teams", token, map[string]string{"name": "Eagles"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create team status = %d", resp.StatusCode)
	}
	var team model.Team
	decodeBody(t, resp, &team)

	resp = doJSON(t, ts, http.MethodPost, "/api/donations", token, map[string]any{
		"team_id":    team.ID,
		"donor_name": "Aunt May",
		"amount":     25,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create donation status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodGet, "/api/leaderboard", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard status = %d", resp.StatusCode)
	}
	var entries []model.LeaderboardEntry
	decodeBody(t, resp, &entries)
	if len(entries) != 1 {
		t.Fatalf("leaderboard entries = %d, want 1", len(entries))
	}
	if entries[0].TotalScore != 25 {
		t.Errorf("total score = %d, want 25", entries[0].TotalScore)
	}
	if entries[0].Rank != 1 {
		t.Errorf("rank = %d, want 1", entries[0].Rank)
	}
	if entries[0].Stats.TotalDonations != 25 || entries[0].Stats.DonationCount != 1 {
		t.Errorf("stats = %+v, want total 25 count 1", entries[0].Stats)
	}

	resp = doJSON(t, ts, http.MethodGet, "/api/statistics", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("statistics status = %d", resp.StatusCode)
	}
	var stats model.Statistics
	decodeBody(t, resp, &stats)
	if stats.TotalRaised != 25 {
		t.Errorf("total raised = %d, want 25", stats.TotalRaised)
	}
	if stats.DonationGoal != 50000 {
		t.Errorf("donation goal = %d, want 50000", stats.DonationGoal)
	}
}

func TestSaleInsufficientInventory(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin@example.com")

	resp := doJSON(t, ts, http.MethodPost, "/api/teams", token, map[string]string{"name": "Hawks"})
	var team model.Team
	decodeBody(t, resp, &team)

	resp = doJSON(t, ts, http.MethodPost, "/api/products", token, map[string]any{
		"name":            "Shirt",
		"price":           15,
		"points_per_unit": 5,
		"inventory":       2,
		"active":          true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product status = %d", resp.StatusCode)
	}
	var product model.Product
	decodeBody(t, resp, &product)

	resp = doJSON(t, ts, http.MethodPost, "/api/sales", token, map[string]any{
		"product_id": product.ID,
		"team_id":    team.ID,
		"quantity":   5,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversell status = %d, want 400", resp.StatusCode)
	}
}

func TestPhotoApproveIsIdempotentOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin@example.com")

	resp := doJSON(t, ts, http.MethodPost, "/api/teams", token, map[string]string{"name": "Owls"})
	var team model.Team
	decodeBody(t, resp, &team)

	resp = doJSON(t, ts, http.MethodPost, "/api/photos", token, map[string]any{
		"team_id": team.ID,
		"url":     "https://example.com/a.jpg",
		"caption": "car wash",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create photo status = %d", resp.StatusCode)
	}
	var photo model.Photo
	decodeBody(t, resp, &photo)

	approvePath := fmt.Sprintf("/api/photos/%d/approve", photo.ID)
	resp = doJSON(t, ts, http.MethodPost, approvePath, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, approvePath, token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second approve status = %d, want 409", resp.StatusCode)
	}
}

func TestSettingsRejectUnknownKey(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts, "admin@example.com")

	resp := doJSON(t, ts, http.MethodPut, "/api/settings", token, map[string]string{"mystery_key": "1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestActivitySubmissionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	admin := login(t, ts, "admin@example.com")

	resp := doJSON(t, ts, http.MethodPost, "/api/teams", admin, map[string]string{"name": "Foxes"})
	var team model.Team
	decodeBody(t, resp, &team)

	resp = doJSON(t, ts, http.MethodPost, "/api/activities", admin, map[string]any{
		"title":  "Car Wash",
		"points": 40,
		"active": true,
		"requirements": []map[string]any{
			{"name": "cars_washed", "kind": "number", "required": true},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create activity status = %d", resp.StatusCode)
	}
	var act model.Activity
	decodeBody(t, resp, &act)

	// Missing required field is rejected.
	subPath := fmt.Sprintf("/api/activities/%d/submissions", act.ID)
	resp = doJSON(t, ts, http.MethodPost, subPath, admin, map[string]any{
		"team_id":   team.ID,
		"responses": map[string]any{},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid submission status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, subPath, admin, map[string]any{
		"team_id":   team.ID,
		"responses": map[string]any{"cars_washed": 12},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submission status = %d", resp.StatusCode)
	}
	var sub model.ActivitySubmission
	decodeBody(t, resp, &sub)
	if sub.Status != model.SubmissionStatusPending {
		t.Errorf("submission status = %q, want pending", sub.Status)
	}

	resp = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/activity-submissions/%d/approve", sub.ID), admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodGet, "/api/leaderboard", admin, nil)
	var entries []model.LeaderboardEntry
	decodeBody(t, resp, &entries)
	if len(entries) != 1 || entries[0].TotalScore != 40 {
		t.Fatalf("leaderboard after approval = %+v, want one entry with score 40", entries)
	}
	if entries[0].Stats.ActivityPoints != 40 {
		t.Errorf("activity points = %d, want 40", entries[0].Stats.ActivityPoints)
	}
}
