package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/SINTT/TODO/internal/config"
	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/http/handlers"
	"github.com/SINTT/TODO/internal/repository"
	"github.com/SINTT/TODO/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	users  *repository.MemoryUserRepository
}

func testConfig() *config.Config {
	return &config.Config{
		APIRateLimit:      config.RateLimit{Max: 10000, Window: time.Minute},
		AuthRateLimit:     config.RateLimit{Max: 10000, Window: time.Minute},
		MutationRateLimit: config.RateLimit{Max: 10000, Window: time.Minute},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := repository.NewMemoryUserRepository()
	identity := service.NewIdentityService(users, time.Second, bcrypt.MinCost)
	taskRepo := repository.NewMemoryTaskRepository()
	tasks := service.NewTaskService(taskRepo, time.Second, time.UTC)
	admin := service.NewAdminService(users, taskRepo, time.Second)
	tokens, err := service.NewTokenService("test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	r := gin.New()
	RegisterRoutes(r, handlers.NewHandler(identity, tasks, tokens, admin), handlers.NewHealthHandler("test", nil), cfg)
	return &testServer{t: t, engine: r, users: users}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func (s *testServer) register(nickname, first, last, patronymic string) {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/register", "", gin.H{
		"nickname":   nickname,
		"password":   "pw-" + nickname,
		"firstName":  first,
		"lastName":   last,
		"patronymic": patronymic,
	})
	if code != http.StatusCreated || !env.Success {
		s.t.Fatalf("register %s: %d %+v", nickname, code, env.Error)
	}
}

func (s *testServer) login(nickname string) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/login", "", gin.H{"nickname": nickname, "password": "pw-" + nickname})
	if code != http.StatusOK {
		s.t.Fatalf("login %s: %d %+v", nickname, code, env.Error)
	}
	var data struct {
		Token string `json:"token"`
	}
	decode(s.t, env.Data, &data)
	return data.Token
}

func decode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func expectError(t *testing.T, what string, code int, env envelope, wantStatus int, wantCode string) {
	t.Helper()
	if code != wantStatus || env.Success || env.Error.Code != wantCode {
		t.Fatalf("%s: expected %d %s, got %d %s (%s)", what, wantStatus, wantCode, code, env.Error.Code, env.Error.Message)
	}
}

type taskJSON struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	CreatedBy   string `json:"createdBy"`
	CreatorRole string `json:"creatorRole"`
	AssignedTo  string `json:"assignedTo"`
	Archived    bool   `json:"archived"`
}

func TestTaskFlow(t *testing.T) {
	s := newTestServer(t, testConfig())

	s.register("root", "Рут", "Рутов", "Рутович")
	s.register("boss", "Борис", "Боссов", "Борисович")
	s.register("ivan", "Иван", "Петров", "Сергеевич")
	s.register("olga", "Ольга", "Иванова", "Петровна")
	if err := s.users.UpdateRole(context.Background(), "root", domain.RoleAdmin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	rootTok := s.login("root")
	bossTok := s.login("boss")
	ivanTok := s.login("ivan")
	olgaTok := s.login("olga")

	code, env := s.do(http.MethodPost, "/api/v1/update-role", bossTok, gin.H{"nickname": "ivan", "role": "admin"})
	expectError(t, "user promoting", code, env, http.StatusForbidden, "Forbidden")

	code, env = s.do(http.MethodPost, "/api/v1/update-role", rootTok, gin.H{"nickname": "boss", "role": " Manager "})
	var promoted struct {
		Role string `json:"role"`
	}
	decode(t, env.Data, &promoted)
	if code != http.StatusOK || promoted.Role != "manager" {
		t.Fatalf("promote boss: %d %+v role=%q", code, env.Error, promoted.Role)
	}

	code, env = s.do(http.MethodPost, "/api/v1/tasks", ivanTok, gin.H{
		"title": "x", "description": "y", "priority": "Low", "dueDate": "2099-01-01T10:00:00", "assignedTo": "Петров И.С.",
	})
	expectError(t, "user creating", code, env, http.StatusForbidden, "Forbidden")

	code, env = s.do(http.MethodPost, "/api/v1/tasks", ivanTok, gin.H{
		"title": "x", "description": "y", "priority": "Low", "dueDate": "2099-01-01T10:00:00", "assigneeNickname": "ghost",
	})
	expectError(t, "user creating for unknown assignee", code, env, http.StatusForbidden, "Forbidden")

	code, env = s.do(http.MethodPost, "/api/create-task", bossTok, gin.H{
		"title":            "Отчёт",
		"description":      "Квартальный отчёт",
		"priority":         "High",
		"dueDate":          "2099-01-01T10:00:00",
		"assigneeNickname": "ivan",
		"createdBy":        "Хакер Х.Х.",
		"creatorRole":      "admin",
		"status":           "done",
	})
	if code != http.StatusCreated {
		t.Fatalf("create task: %d %+v", code, env.Error)
	}
	var created struct {
		TaskID int64    `json:"taskId"`
		Task   taskJSON `json:"task"`
	}
	decode(t, env.Data, &created)
	if created.Task.CreatedBy != "Боссов Б.Б." || created.Task.CreatorRole != "manager" {
		t.Fatalf("creator must come from the token: %+v", created.Task)
	}
	if created.Task.Status != "to-do" || created.Task.AssignedTo != "Петров И.С." {
		t.Fatalf("unexpected task %+v", created.Task)
	}

	path := "/api/v1/tasks/" + jsonID(created.TaskID)

	code, env = s.do(http.MethodPut, path+"/assignee", ivanTok, gin.H{"assigneeNickname": "ghost"})
	expectError(t, "user reassigning to unknown assignee", code, env, http.StatusForbidden, "Forbidden")
	code, env = s.do(http.MethodPut, path+"/assignee", bossTok, gin.H{"assigneeNickname": "ghost"})
	expectError(t, "manager reassigning to unknown assignee", code, env, http.StatusNotFound, "NotFound")

	code, env = s.do(http.MethodPut, path, ivanTok, gin.H{"status": "done"})
	expectError(t, "skip to done", code, env, http.StatusConflict, "InvalidTransition")

	code, env = s.do(http.MethodPut, path, olgaTok, gin.H{"status": "in-progress"})
	expectError(t, "stranger", code, env, http.StatusForbidden, "Forbidden")

	code, env = s.do(http.MethodPut, path, ivanTok, gin.H{"status": "in-progress"})
	if code != http.StatusOK {
		t.Fatalf("start: %d %+v", code, env.Error)
	}

	code, env = s.do(http.MethodPut, path, ivanTok, gin.H{"status": "paused"})
	expectError(t, "unknown status", code, env, http.StatusBadRequest, "ValidationError")

	code, env = s.do(http.MethodGet, "/api/v1/tasks?view=active&sort=priority", olgaTok, nil)
	if code != http.StatusOK {
		t.Fatalf("list: %d %+v", code, env.Error)
	}
	var page struct {
		Items []taskJSON `json:"items"`
		Total int        `json:"total"`
	}
	decode(t, env.Data, &page)
	if page.Total != 1 || page.Items[0].Status != "in-progress" || page.Items[0].Archived {
		t.Fatalf("unexpected active list %+v", page)
	}

	code, env = s.do(http.MethodPut, path+"/assignee", bossTok, gin.H{"assigneeNickname": "olga"})
	if code != http.StatusOK {
		t.Fatalf("reassign: %d %+v", code, env.Error)
	}
	code, env = s.do(http.MethodPut, path, olgaTok, gin.H{"status": "done"})
	if code != http.StatusOK {
		t.Fatalf("finish: %d %+v", code, env.Error)
	}

	code, env = s.do(http.MethodGet, "/api/tasks?view=archive", ivanTok, nil)
	decode(t, env.Data, &page)
	if code != http.StatusOK || page.Total != 1 || !page.Items[0].Archived {
		t.Fatalf("done task must be archived: %d %+v", code, page)
	}

	code, env = s.do(http.MethodGet, "/api/v1/stats", bossTok, nil)
	expectError(t, "manager stats", code, env, http.StatusForbidden, "Forbidden")
	code, env = s.do(http.MethodGet, "/api/v1/stats", rootTok, nil)
	var stats struct {
		TotalUsers    int            `json:"totalUsers"`
		TotalTasks    int            `json:"totalTasks"`
		ArchivedTasks int            `json:"archivedTasks"`
		TasksByStatus map[string]int `json:"tasksByStatus"`
	}
	decode(t, env.Data, &stats)
	if code != http.StatusOK || stats.TotalUsers != 4 || stats.TotalTasks != 1 || stats.ArchivedTasks != 1 || stats.TasksByStatus["done"] != 1 {
		t.Fatalf("stats: %d %+v", code, stats)
	}

	code, env = s.do(http.MethodDelete, path, ivanTok, nil)
	expectError(t, "user deleting", code, env, http.StatusForbidden, "Forbidden")
	code, _ = s.do(http.MethodDelete, path, rootTok, nil)
	if code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	code, env = s.do(http.MethodGet, path, ivanTok, nil)
	expectError(t, "deleted task", code, env, http.StatusNotFound, "NotFound")
}

func TestAuthAndUsers(t *testing.T) {
	s := newTestServer(t, testConfig())

	s.register("root", "Рут", "Рутов", "Рутович")
	s.register("ivan", "Иван", "Петров", "Сергеевич")
	s.register("olga", "Ольга", "Иванова", "Петровна")
	if err := s.users.UpdateRole(context.Background(), "root", domain.RoleAdmin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	code, env := s.do(http.MethodPost, "/api/v1/register", "", gin.H{
		"nickname": "ivan", "password": "x", "firstName": "A", "lastName": "B", "patronymic": "C",
	})
	expectError(t, "duplicate", code, env, http.StatusConflict, "DuplicateIdentity")

	code, env = s.do(http.MethodPost, "/api/v1/register", "", gin.H{"nickname": "petr"})
	expectError(t, "incomplete", code, env, http.StatusBadRequest, "ValidationError")

	q := url.Values{"nickname": {"ivan"}, "password": {"wrong"}}
	code, env = s.do(http.MethodGet, "/api/login?"+q.Encode(), "", nil)
	expectError(t, "wrong password", code, env, http.StatusUnauthorized, "InvalidCredential")

	q.Set("password", "pw-ivan")
	code, env = s.do(http.MethodGet, "/api/login?"+q.Encode(), "", nil)
	if code != http.StatusOK {
		t.Fatalf("GET login: %d %+v", code, env.Error)
	}
	var login struct {
		Token       string `json:"token"`
		Role        string `json:"role"`
		DisplayName string `json:"displayName"`
	}
	decode(t, env.Data, &login)
	if login.Role != "user" || login.DisplayName != "Петров И.С." {
		t.Fatalf("unexpected login payload %+v", login)
	}
	ivanTok := login.Token
	rootTok := s.login("root")

	code, env = s.do(http.MethodGet, "/api/v1/me", "", nil)
	expectError(t, "no token", code, env, http.StatusUnauthorized, "Unauthenticated")
	code, env = s.do(http.MethodGet, "/api/v1/me", "garbage", nil)
	expectError(t, "bad token", code, env, http.StatusUnauthorized, "Unauthenticated")

	code, env = s.do(http.MethodGet, "/api/v1/users?exclude_self=true", rootTok, nil)
	var users struct {
		Items []struct {
			Nickname string `json:"nickname"`
		} `json:"items"`
		Total int `json:"total"`
	}
	decode(t, env.Data, &users)
	if code != http.StatusOK || users.Total != 2 {
		t.Fatalf("exclude_self: %d %+v", code, users)
	}
	for _, u := range users.Items {
		if u.Nickname == "root" {
			t.Fatalf("caller must be excluded")
		}
	}

	code, env = s.do(http.MethodGet, "/api/v1/users?role=user&q="+url.QueryEscape("петров"), ivanTok, nil)
	decode(t, env.Data, &users)
	if code != http.StatusOK || users.Total != 1 || users.Items[0].Nickname != "ivan" {
		t.Fatalf("assignee search: %d %+v", code, users)
	}

	code, env = s.do(http.MethodGet, "/api/v1/users?page=9223372036854775807&page_size=100", ivanTok, nil)
	decode(t, env.Data, &users)
	if code != http.StatusOK || len(users.Items) != 0 || users.Total != 3 {
		t.Fatalf("page past the end: %d %+v", code, users)
	}

	code, env = s.do(http.MethodGet, "/api/v1/users?role=boss", ivanTok, nil)
	expectError(t, "bad role filter", code, env, http.StatusBadRequest, "ValidationError")

	code, env = s.do(http.MethodPost, "/api/v1/update-role", ivanTok, gin.H{"nickname": "ghost", "role": "manager"})
	expectError(t, "user changing missing account", code, env, http.StatusForbidden, "Forbidden")

	code, env = s.do(http.MethodPost, "/api/v1/update-role", rootTok, gin.H{"nickname": "root", "role": "user"})
	expectError(t, "self role", code, env, http.StatusForbidden, "Forbidden")

	code, env = s.do(http.MethodDelete, "/api/v1/delete-user", ivanTok, gin.H{"nickname": "olga"})
	expectError(t, "delete other", code, env, http.StatusForbidden, "Forbidden")

	code, env = s.do(http.MethodDelete, "/api/v1/delete-user", ivanTok, nil)
	if code != http.StatusOK {
		t.Fatalf("delete self: %d %+v", code, env.Error)
	}
	code, env = s.do(http.MethodGet, "/api/v1/me", ivanTok, nil)
	expectError(t, "deleted account", code, env, http.StatusUnauthorized, "Unauthenticated")

	code, env = s.do(http.MethodGet, "/api/v1/tasks/abc", rootTok, nil)
	expectError(t, "bad id", code, env, http.StatusBadRequest, "ValidationError")
	code, env = s.do(http.MethodGet, "/api/v1/tasks?sort=alphabet", rootTok, nil)
	expectError(t, "bad sort", code, env, http.StatusBadRequest, "ValidationError")
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = config.RateLimit{Max: 2, Window: time.Minute}
	s := newTestServer(t, cfg)

	body := gin.H{"nickname": "nobody", "password": "x"}
	for i := 0; i < 2; i++ {
		code, env := s.do(http.MethodPost, "/api/v1/login", "", body)
		expectError(t, "unknown user", code, env, http.StatusNotFound, "NotFound")
	}
	code, env := s.do(http.MethodPost, "/api/v1/login", "", body)
	expectError(t, "third attempt", code, env, http.StatusTooManyRequests, "RateLimited")
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig())

	for _, path := range []string{"/health", "/healthz", "/readyz", "/api/health"} {
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("http_requests_total")) {
		t.Fatalf("metrics endpoint: %d", w.Code)
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
