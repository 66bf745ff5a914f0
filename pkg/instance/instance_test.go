package instance

import "testing"

func TestGetIDPrefersPlatformIdentifier(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("BOXOFFICE_INSTANCE_ID", "override")
	if got := GetID("local"); got != "web.1" {
		t.Fatalf("expected web.1, got %s", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("BOXOFFICE_INSTANCE_ID", "")
	t.Setenv("HOSTNAME", "")
	if got := GetID("local"); got != "local" {
		t.Fatalf("expected fallback, got %s", got)
	}
}
