//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/minimart/apiserver/config"
	"github.com/minimart/apiserver/internal/db"
	"github.com/minimart/apiserver/internal/server"
)

const serverPort = 18080

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d", "postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestCheckoutLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("admin_%d@example.com", time.Now().UnixNano())
	password := "testpass123!"

	signup(t, baseURL, email, password)
	if err := promoteUserToAdmin(email); err != nil {
		t.Fatalf("promote user: %v", err)
	}
	token := signin(t, baseURL, email, password)

	productID := createProduct(t, baseURL, token, "E2E Mug", 9.50, 5)

	addToCart(t, baseURL, token, productID, 2)

	order := checkout(t, baseURL, token)
	if order.TotalAmount != 19.0 {
		t.Fatalf("expected total 19.00, got %.2f", order.TotalAmount)
	}

	if stock := productStock(t, baseURL, productID); stock != 3 {
		t.Fatalf("expected stock 3 after checkout, got %d", stock)
	}
	if n := cartItemCount(t, baseURL, token); n != 0 {
		t.Fatalf("expected empty cart after checkout, got %d items", n)
	}

	cancelOrder(t, baseURL, token, order.OrderID)
	if stock := productStock(t, baseURL, productID); stock != 5 {
		t.Fatalf("expected stock restored to 5 after cancel, got %d", stock)
	}
}

type checkoutResponse struct {
	OrderID     int     `json:"order_id"`
	TotalAmount float64 `json:"total_amount"`
}

func signup(t *testing.T, baseURL, email, password string) {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/auth/signup", "", map[string]string{
		"name":     "E2E Admin",
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("signup status %d: %s", status, body)
	}
}

func signin(t *testing.T, baseURL, email, password string) string {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/auth/signin", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("signin status %d: %s", status, body)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("decode signin response: %v", err)
	}
	if parsed.AccessToken == "" {
		t.Fatalf("missing access token")
	}
	return parsed.AccessToken
}

func createProduct(t *testing.T, baseURL, token, name string, price float64, stock int) int {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/admin/products", token, map[string]any{
		"name":        name,
		"description": "e2e test product",
		"price":       price,
		"stock":       stock,
		"category":    "test",
	})
	if status != http.StatusCreated {
		t.Fatalf("create product status %d: %s", status, body)
	}

	var parsed struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if parsed.ID == 0 {
		t.Fatalf("expected product id to be set")
	}
	return parsed.ID
}

func addToCart(t *testing.T, baseURL, token string, productID, quantity int) {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/cart", token, map[string]int{
		"product_id": productID,
		"quantity":   quantity,
	})
	if status != http.StatusCreated {
		t.Fatalf("add to cart status %d: %s", status, body)
	}
}

func checkout(t *testing.T, baseURL, token string) checkoutResponse {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/checkout", token, map[string]string{
		"shipping_address": "12 Main St",
		"payment_method":   "card",
	})
	if status != http.StatusCreated {
		t.Fatalf("checkout status %d: %s", status, body)
	}

	var parsed checkoutResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	if parsed.OrderID == 0 {
		t.Fatalf("expected order id to be set")
	}
	return parsed
}

func cancelOrder(t *testing.T, baseURL, token string, orderID int) {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/orders/%d/cancel", baseURL, orderID), token, nil)
	if status != http.StatusOK {
		t.Fatalf("cancel order status %d: %s", status, body)
	}
}

func productStock(t *testing.T, baseURL string, productID int) int {
	t.Helper()

	status, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/products/%d", baseURL, productID), "", nil)
	if status != http.StatusOK {
		t.Fatalf("get product status %d: %s", status, body)
	}

	var parsed struct {
		Stock int `json:"stock"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	return parsed.Stock
}

func cartItemCount(t *testing.T, baseURL, token string) int {
	t.Helper()

	status, body := doJSON(t, http.MethodGet, baseURL+"/cart", token, nil)
	if status != http.StatusOK {
		t.Fatalf("view cart status %d: %s", status, body)
	}

	var parsed struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	return len(parsed.Items)
}

func doJSON(t *testing.T, method, url, token string, payload any) (int, string) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func promoteUserToAdmin(email string) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.PostgresURL(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = conn.ExecContext(ctx, "UPDATE users SET role = 'admin' WHERE email = $1", email)
	return err
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.PostgresURL(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, db.PostgresURL(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "minimart")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "minimart_db")
	_ = os.Setenv("DB_USE_SSL", "false")
	// Deterministic payment outcome for the lifecycle test.
	_ = os.Setenv("DUMMY_PAYMENT_SUCCESS_RATE", "1.0")
	_ = os.Setenv("STORAGE_BACKEND", "")
	_ = os.Setenv("MQ_BACKEND", "")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
