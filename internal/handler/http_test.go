package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quizleague/backend/internal/config"
	"github.com/quizleague/backend/internal/memory"
	"github.com/quizleague/backend/internal/service"
	"github.com/quizleague/backend/internal/websocket"
)

const testAdminKey = "test-admin-key"

func newTestHandler(t *testing.T) (*Handler, *memory.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()

	leagues := service.NewLeagueService(store, logger)
	leaderboard := service.NewLeaderboardService(store, &config.LeaderboardConfig{DefaultLimit: 50, MaxLimit: 500}, logger)
	scoring := service.NewScoringService(store, store, leaderboard, logger)
	users := service.NewUserService(store, logger)
	content := service.NewContentService(store, logger)
	hub := websocket.NewHub(logger)

	return NewHandler(leagues, scoring, leaderboard, users, content, hub, testAdminKey, "", logger), store
}

func doJSON(t *testing.T, h *Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestStatusEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/status", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "Server Running" || body["database"] != "Connected" {
		t.Fatalf("unexpected status body: %v", body)
	}
}

func TestCreateLeagueRequiresIdentity(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/leagues/create",
		map[string]any{"name": "No Identity League"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestCreatePrivateLeagueReturnsCode(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/leagues/create",
		map[string]any{"name": "Friday Quiz", "is_private": true},
		map[string]string{"X-USER-ID": "u1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	code, _ := body["code"].(string)
	if len(code) != 6 {
		t.Fatalf("expected 6-character code in response, got %v", body["code"])
	}
	if body["league_id"] == "" {
		t.Fatal("expected league_id in response")
	}
}

func TestCreateLeagueIdentityFromBody(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/leagues/create",
		map[string]any{"name": "Body Identity", "creator_id": "u9"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with body identity, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateLeagueRejectsShortName(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/leagues/create",
		map[string]any{"name": "ab"},
		map[string]string{"X-USER-ID": "u1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short name, got %d", rec.Code)
	}
}

func createPrivateLeague(t *testing.T, h *Handler, creator string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/leagues/create",
		map[string]any{"name": "Join Target", "is_private": true},
		map[string]string{"X-USER-ID": creator})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create league: %d %s", rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["code"].(string)
}

func TestJoinFlow(t *testing.T) {
	h, _ := newTestHandler(t)
	code := createPrivateLeague(t, h, "owner")

	rec := doJSON(t, h, http.MethodPost, "/api/leagues/join/check",
		map[string]any{"code": code},
		map[string]string{"X-USER-ID": "u2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("join check: expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["is_member"] != false {
		t.Fatalf("expected is_member false, got %v", body)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/leagues/join/confirm",
		map[string]any{"code": code},
		map[string]string{"X-USER-ID": "u2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("join confirm: expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["message"] != "Successfully joined the league!" {
		t.Fatalf("unexpected join response: %v", body)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/leagues/join/confirm",
		map[string]any{"code": code},
		map[string]string{"X-USER-ID": "u2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat join: expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["message"] != "You are already a member of this league." {
		t.Fatalf("unexpected repeat join response: %v", body)
	}
}

func TestJoinCheckRejectsBadCode(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/leagues/join/check",
		map[string]any{"code": "abc"},
		map[string]string{"X-USER-ID": "u1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short code, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/leagues/join/check",
		map[string]any{"code": "ZZZZZZ"},
		map[string]string{"X-USER-ID": "u1"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", rec.Code)
	}
}

func TestScoreSubmitAndLeaderboard(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/score/submit",
		map[string]any{"points": 30, "quiz_id": "quiz-1"},
		map[string]string{"X-USER-ID": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/score/submit",
		map[string]any{"points": 25, "quiz_id": "quiz-2"},
		map[string]string{"X-USER-ID": "u1"})
	body := decodeBody(t, rec)
	if body["overall_score"] != float64(55) {
		t.Fatalf("expected cumulative score 55, got %v", body["overall_score"])
	}
	if body["rank"] != float64(1) {
		t.Fatalf("expected rank 1, got %v", body["rank"])
	}

	rec = doJSON(t, h, http.MethodGet, "/api/leaderboard/global?limit=5", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: expected 200, got %d", rec.Code)
	}
	var entries []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0]["gamePoints"] != float64(55) {
		t.Fatalf("unexpected leaderboard: %v", entries)
	}
}

func TestScoreSubmitRequiresIdentity(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/score/submit",
		map[string]any{"points": 30}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminUploadKeyMatrix(t *testing.T) {
	h, _ := newTestHandler(t)
	payload := []map[string]any{{"question": "Q1", "answer": "A1"}}

	rec := doJSON(t, h, http.MethodPost, "/api/admin/quiz/upload", payload, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/admin/quiz/upload", payload,
		map[string]string{"X-API-KEY": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/admin/quiz/upload", payload,
		map[string]string{"X-API-KEY": testAdminKey})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with valid key, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["inserted_count"] != float64(1) {
		t.Fatalf("expected 1 inserted, got %v", body)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/admin/quiz/upload", []map[string]any{},
		map[string]string{"X-API-KEY": testAdminKey})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty upload, got %d", rec.Code)
	}
}

func TestQuestionsReturnsUploadedDocs(t *testing.T) {
	h, _ := newTestHandler(t)

	doJSON(t, h, http.MethodPost, "/api/admin/quiz/upload",
		[]map[string]any{{"question": "Q1"}, {"question": "Q2"}},
		map[string]string{"X-API-KEY": testAdminKey})

	rec := doJSON(t, h, http.MethodGet, "/api/questions", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var docs []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decode questions: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(docs))
	}
}

func TestTelegramAuthWithBodyUser(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/telegram",
		map[string]any{"user": map[string]any{"id": 42, "first_name": "Nia", "username": "nia"}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	user, ok := body["user"].(map[string]any)
	if !ok || user["telegram_id"] != "42" {
		t.Fatalf("unexpected auth response: %v", body)
	}
}

func TestTelegramAuthMissingUser(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/auth/telegram", map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user data, got %d", rec.Code)
	}
}

func TestSearchReturnsEmptyArray(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/leagues/search?q=nothing", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Fatalf("expected empty JSON array, got %q", got)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/league/search?query=nothing", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("legacy alias: expected 200, got %d", rec.Code)
	}
}

func TestMyLeaguesRequiresUser(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/leagues/my", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user, got %d", rec.Code)
	}

	createPrivateLeague(t, h, "owner")
	rec = doJSON(t, h, http.MethodGet, "/api/leagues/my?user_id=owner", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var leagues []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &leagues); err != nil {
		t.Fatalf("decode leagues: %v", err)
	}
	if len(leagues) != 1 || leagues[0]["isOwner"] != true {
		t.Fatalf("unexpected my-leagues response: %v", leagues)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS origin header")
	}
}
