package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bilancio/internal/config"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BILANCIO_TEST_VALUE=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("BILANCIO_TEST_VALUE", "")
	os.Unsetenv("BILANCIO_TEST_VALUE")

	LoadEnvFile(path)
	if got := os.Getenv("BILANCIO_TEST_VALUE"); got != "from-dotenv" {
		t.Errorf("BILANCIO_TEST_VALUE = %q, want from-dotenv", got)
	}
}

func TestCredentials(t *testing.T) {
	t.Setenv("BILANCIO_EMAIL", "env@example.com")
	t.Setenv("BILANCIO_PASSWORD", "env-secret")

	email, password := Credentials("", "")
	if email != "env@example.com" || password != "env-secret" {
		t.Errorf("Credentials() = %q, %q", email, password)
	}
	email, password = Credentials("flag@example.com", "flag-secret")
	if email != "flag@example.com" || password != "flag-secret" {
		t.Errorf("Credentials() with flags = %q, %q", email, password)
	}
}

func TestUserService(t *testing.T) {
	cfg := config.Defaults()
	cfg.UsersDBPath = filepath.Join(t.TempDir(), "users.db")

	svc, closeDB, err := UserService(cfg, nil)
	if err != nil {
		t.Fatalf("UserService() error = %v", err)
	}
	defer closeDB()

	ctx := context.Background()
	if _, err := svc.Register(ctx, "Ada", "ada@example.com", "correct horse"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ada@example.com", "correct horse"); err != nil {
		t.Errorf("Authenticate() error = %v", err)
	}
}
