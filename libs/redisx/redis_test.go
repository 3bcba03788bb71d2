package redisx

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewClient_Optional(t *testing.T) {
	if NewClient("") != nil {
		t.Fatalf("expected nil client for empty addr")
	}
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestReadyCheck(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := NewClient(mr.Addr())
	defer rdb.Close()

	if err := ReadyCheck(rdb)(context.Background()); err != nil {
		t.Fatalf("expected ready, got %v", err)
	}
	mr.Close()
	if err := ReadyCheck(rdb)(context.Background()); err == nil {
		t.Fatalf("expected failure after redis stopped")
	}
}
