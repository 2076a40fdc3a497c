package user

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestToView_OmitsPassword(t *testing.T) {
	now := time.Now().UTC()
	u := User{
		ID:           "0f8fad5b-d9cb-469f-a165-70867728950e",
		Name:         "alice",
		Email:        "a@x.com",
		PasswordHash: "$2a$10$secret",
		Role:         RoleUser,
		Photo:        DefaultPhoto,
		Provider:     ProviderLocal,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	b, err := json.Marshal(ToView(u))
	if err != nil {
		t.Fatalf("marshal view: %v", err)
	}

	body := string(b)
	if strings.Contains(body, "secret") || strings.Contains(body, "password") {
		t.Fatalf("view leaked password: %s", body)
	}

	for _, key := range []string{"id", "name", "email", "verified", "photo", "provider", "role", "created_at", "updated_at"} {
		if !strings.Contains(body, `"`+key+`"`) {
			t.Fatalf("view missing %q: %s", key, body)
		}
	}
}

func TestIsFederated(t *testing.T) {
	if (User{Provider: ProviderLocal}).IsFederated() {
		t.Fatalf("local account must not be federated")
	}
	if !(User{Provider: ProviderGoogle}).IsFederated() {
		t.Fatalf("google account must be federated")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("got %q", got)
	}
}
