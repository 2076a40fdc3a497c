package person

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewFromCreateRequest_KeepsClientID(t *testing.T) {
	p := NewFromCreateRequest(CreatePersonRequest{
		ID:        "p-1",
		Name:      " Anna ",
		BirthDate: "1950-02-01",
		Gender:    GenderFemale,
	}, "user-1")

	if p.ID != "p-1" {
		t.Fatalf("expected client id, got %q", p.ID)
	}
	if p.Name != "Anna" {
		t.Fatalf("expected trimmed name, got %q", p.Name)
	}
	if p.CreatedByUserID != "user-1" {
		t.Fatalf("expected created_by_user_id user-1, got %q", p.CreatedByUserID)
	}
}

func TestNewFromCreateRequest_GeneratesID(t *testing.T) {
	p := NewFromCreateRequest(CreatePersonRequest{Name: "Ivan", BirthDate: "1949-05-09", Gender: GenderMale}, "user-1")

	if _, err := uuid.Parse(p.ID); err != nil {
		t.Fatalf("expected generated uuid, got %q: %v", p.ID, err)
	}
}
