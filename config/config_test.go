package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	os.Unsetenv("LUDOIST_TCP_ADDR")
	os.Unsetenv("LUDOIST_TURN_TIMEOUT")

	cfg := Load()
	if cfg.TCPAddr != "0.0.0.0:4590" {
		t.Errorf("tcp addr %s", cfg.TCPAddr)
	}
	if cfg.TurnTimeout != 30*time.Second {
		t.Errorf("turn timeout %v", cfg.TurnTimeout)
	}
	if cfg.ViolationLimit != 8 {
		t.Errorf("violation limit %d", cfg.ViolationLimit)
	}
}

func TestOverrides(t *testing.T) {
	os.Setenv("LUDOIST_TCP_ADDR", "127.0.0.1:9999")
	os.Setenv("LUDOIST_TURN_TIMEOUT", "2m")
	os.Setenv("LUDOIST_VIOLATION_LIMIT", "not a number")
	defer func() {
		os.Unsetenv("LUDOIST_TCP_ADDR")
		os.Unsetenv("LUDOIST_TURN_TIMEOUT")
		os.Unsetenv("LUDOIST_VIOLATION_LIMIT")
	}()

	cfg := Load()
	if cfg.TCPAddr != "127.0.0.1:9999" {
		t.Errorf("tcp addr %s", cfg.TCPAddr)
	}
	if cfg.TurnTimeout != 2*time.Minute {
		t.Errorf("turn timeout %v", cfg.TurnTimeout)
	}
	// junk falls back to the default
	if cfg.ViolationLimit != 8 {
		t.Errorf("violation limit %d", cfg.ViolationLimit)
	}
}
