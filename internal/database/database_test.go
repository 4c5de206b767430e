package database

import (
	"context"
	"testing"
	"time"

	"github.com/R3E-Network/model_layer/internal/logging"
)

func TestOpen_GivesUpAfterRetries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Port 1 on loopback refuses connections immediately.
	_, err := Open(ctx, Options{
		URL:            "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1",
		MaxConns:       2,
		ConnectRetries: 2,
		ConnectBackoff: time.Millisecond,
	}, logging.NewDiscard())
	if err == nil {
		t.Fatal("expected an error for an unreachable database")
	}
}

func TestOpen_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, Options{
		URL:            "postgres://u:p@127.0.0.1:1/db?sslmode=disable",
		ConnectRetries: 100,
		ConnectBackoff: time.Second,
	}, logging.NewDiscard())
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
