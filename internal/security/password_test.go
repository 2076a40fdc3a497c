package security

import "testing"

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if hash == "pw1" {
		t.Fatalf("hash must not equal the plaintext")
	}

	if err := CheckPassword(hash, "pw1"); err != nil {
		t.Fatalf("expected original plaintext to verify, got %v", err)
	}

	for _, other := range []string{"pw2", "", "PW1", "pw1 "} {
		if err := CheckPassword(hash, other); err == nil {
			t.Fatalf("expected %q to be rejected", other)
		}
	}
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPassword("same")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	b, err := HashPassword("same")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if a == b {
		t.Fatalf("expected different salts to give different hashes")
	}
}

func TestCheckPassword_EmptyHashNeverMatches(t *testing.T) {
	if err := CheckPassword("", ""); err == nil {
		t.Fatalf("expected empty hash to be rejected")
	}
}
