package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmitrijs2005/docverify/internal/server/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

func TestNewApp_DBError(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })

	openDB = func(context.Context, string) (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}

	if _, err := NewApp(context.Background(), testConfig()); err == nil {
		t.Fatal("expected db init error")
	}
}

func TestNewApp_BadLogLevel(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })

	called := false
	openDB = func(context.Context, string) (*sql.DB, error) {
		called = true
		return nil, errors.New("unreachable")
	}

	cfg := testConfig()
	cfg.LogLevel = "loud"
	if _, err := NewApp(context.Background(), cfg); err == nil {
		t.Fatal("expected logger init error")
	}
	if called {
		t.Fatal("database opened despite logger error")
	}
}
