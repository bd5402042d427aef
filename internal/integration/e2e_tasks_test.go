package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/SINTT/TODO/internal/config"
	"github.com/SINTT/TODO/internal/domain"
	httpserver "github.com/SINTT/TODO/internal/http"
	"github.com/SINTT/TODO/internal/http/handlers"
	"github.com/SINTT/TODO/internal/repository"
	"github.com/SINTT/TODO/internal/service"
)

func applyMigrationsToPool(t *testing.T, dbp *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := dbp.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

type client struct {
	t    *testing.T
	base string
}

func (c client) call(method, path, token string, body any) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res.StatusCode, out
}

func (c client) token(nickname, password string) string {
	c.t.Helper()
	code, out := c.call(http.MethodPost, "/api/v1/login", "", map[string]string{"nickname": nickname, "password": password})
	if code != http.StatusOK {
		c.t.Fatalf("login %s: %d %v", nickname, code, out)
	}
	return out["data"].(map[string]any)["token"].(string)
}

// Runs the task flow against Postgres; concurrent status changes must
// produce exactly one winner thanks to SELECT ... FOR UPDATE.
func TestE2E_Postgres_TaskFlow(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	dbp, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer dbp.Close()

	applyMigrationsToPool(t, dbp)
	if _, err := dbp.Exec(context.Background(), `TRUNCATE users, tasks RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	users := repository.NewUserRepository(dbp)
	identity := service.NewIdentityService(users, 5*time.Second, bcrypt.MinCost)
	taskRepo := repository.NewTaskRepository(dbp)
	tasks := service.NewTaskService(taskRepo, 5*time.Second, time.UTC)
	admin := service.NewAdminService(users, taskRepo, 5*time.Second)
	tokens, err := service.NewTokenService("integration-secret-0123", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	cfg := &config.Config{
		APIRateLimit:      config.RateLimit{Max: 10000, Window: time.Minute},
		AuthRateLimit:     config.RateLimit{Max: 10000, Window: time.Minute},
		MutationRateLimit: config.RateLimit{Max: 10000, Window: time.Minute},
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	httpserver.RegisterRoutes(r,
		handlers.NewHandler(identity, tasks, tokens, admin),
		handlers.NewHealthHandler("test", map[string]handlers.Pinger{"database": dbp}),
		cfg,
	)
	ts := httptest.NewServer(r)
	defer ts.Close()

	c := client{t: t, base: ts.URL}

	for _, u := range []map[string]string{
		{"nickname": "boss", "password": "pw", "firstName": "Борис", "lastName": "Боссов", "patronymic": "Б"},
		{"nickname": "ivan", "password": "pw", "firstName": "Иван", "lastName": "Петров", "patronymic": "С"},
	} {
		if code, out := c.call(http.MethodPost, "/api/v1/register", "", u); code != http.StatusCreated {
			t.Fatalf("register: %d %v", code, out)
		}
	}
	if err := users.UpdateRole(context.Background(), "boss", domain.RoleManager); err != nil {
		t.Fatalf("promote: %v", err)
	}

	bossTok := c.token("boss", "pw")
	ivanTok := c.token("ivan", "pw")

	code, out := c.call(http.MethodPost, "/api/v1/tasks", bossTok, map[string]string{
		"title":            "Проверка",
		"description":      "e2e",
		"priority":         "Medium",
		"dueDate":          "2099-05-01 12:00",
		"assigneeNickname": "ivan",
	})
	if code != http.StatusCreated {
		t.Fatalf("create: %d %v", code, out)
	}
	id := int64(out["data"].(map[string]any)["taskId"].(float64))
	path := fmt.Sprintf("/api/v1/tasks/%d", id)

	const n = 8
	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, _ := c.call(http.MethodPut, path, ivanTok, map[string]string{"status": "in-progress"})
			codes <- code
		}()
	}
	wg.Wait()
	close(codes)

	ok, conflict := 0, 0
	for code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if ok != 1 || conflict != n-1 {
		t.Fatalf("expected one winner, got ok=%d conflict=%d", ok, conflict)
	}

	if code, out := c.call(http.MethodGet, "/readyz", "", nil); code != http.StatusOK {
		t.Fatalf("readyz: %d %v", code, out)
	}
}
