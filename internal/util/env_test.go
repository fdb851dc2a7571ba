package util

import (
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("LINKCHART_TEST_STR", "value")
	t.Setenv("LINKCHART_TEST_EMPTY", "")
	t.Setenv("LINKCHART_TEST_INT", "25")
	t.Setenv("LINKCHART_TEST_BAD_INT", "many")
	t.Setenv("LINKCHART_TEST_BOOL", "true")
	t.Setenv("LINKCHART_TEST_BAD_BOOL", "maybe")
	t.Setenv("LINKCHART_TEST_DURATION", "90s")
	t.Setenv("LINKCHART_TEST_BAD_DURATION", "soon")

	if got := GetEnv("LINKCHART_TEST_STR"); got != "value" {
		t.Fatalf("GetEnv: got %q", got)
	}
	if got := GetEnv("LINKCHART_TEST_UNSET"); got != "" {
		t.Fatalf("GetEnv unset: got %q", got)
	}
	if got := GetEnvString("LINKCHART_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("GetEnvString unset: got %q", got)
	}
	if got := GetEnvString("LINKCHART_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Fatalf("GetEnvString empty: got %q", got)
	}
	if got := GetEnvInt("LINKCHART_TEST_INT", 1); got != 25 {
		t.Fatalf("GetEnvInt: got %v", got)
	}
	if got := GetEnvInt("LINKCHART_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("GetEnvInt fallback: got %v", got)
	}
	if !GetEnvBool("LINKCHART_TEST_BOOL", false) {
		t.Fatal("GetEnvBool: expected true")
	}
	if !GetEnvBool("LINKCHART_TEST_BAD_BOOL", true) {
		t.Fatal("GetEnvBool: expected fallback")
	}
	if got := GetEnvDuration("LINKCHART_TEST_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("GetEnvDuration: got %v", got)
	}
	if got := GetEnvDuration("LINKCHART_TEST_BAD_DURATION", time.Second); got != time.Second {
		t.Fatalf("GetEnvDuration fallback: got %v", got)
	}
}
