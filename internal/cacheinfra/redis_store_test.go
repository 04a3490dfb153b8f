package cacheinfra

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestNewRedisStore_Validation(t *testing.T) {
	if _, err := NewRedisStore(nil, "p:"); err == nil {
		t.Error("expected error for nil client")
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	if _, err := NewRedisStore(client, ""); err == nil {
		t.Error("expected error for empty prefix")
	}

	store, err := NewRedisStore(client, "intercept:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Prefix() != "intercept:" {
		t.Errorf("expected prefix intercept:, got %q", store.Prefix())
	}
}

func TestEscapeGlob(t *testing.T) {
	tests := map[string]string{
		"books:":   "books:",
		"b*:":      `b\*:`,
		"b?[x]:":   `b\?\[x\]:`,
		`back\sl:`: `back\\sl:`,
	}
	for in, want := range tests {
		if got := escapeGlob(in); got != want {
			t.Errorf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}
