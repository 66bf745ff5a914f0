package pubsub

import (
	"context"
	"testing"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		project, kind, name, want string
	}{
		{"box", "topics", "orders", "projects/box/topics/orders"},
		{"box", "topics", " orders ", "projects/box/topics/orders"},
		{"box", "topics", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"box", "subscriptions", "orders-sub", "projects/box/subscriptions/orders-sub"},
		{"", "topics", "orders", ""},
		{"box", "topics", "", ""},
	}
	for _, tc := range cases {
		if got := resourceName(tc.project, tc.kind, tc.name); got != tc.want {
			t.Fatalf("resourceName(%q,%q,%q)=%q want %q", tc.project, tc.kind, tc.name, got, tc.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatalf("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
}
