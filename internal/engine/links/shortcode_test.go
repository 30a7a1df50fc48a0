package links

import (
	"context"
	"errors"
	"testing"
)

type MockChecker struct {
	aliases map[string]bool
}

func (m *MockChecker) ExistsByAlias(ctx context.Context, alias string) (bool, error) {
	if alias == "error" {
		return false, errors.New("db error")
	}
	return m.aliases[alias], nil
}

func TestGenerateAlias(t *testing.T) {
	ctx := context.Background()
	checker := &MockChecker{
		aliases: map[string]bool{
			"taken": true,
		},
	}

	// Custom alias success
	alias, err := GenerateAlias(ctx, "summer-sale_24", checker)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if alias != "summer-sale_24" {
		t.Errorf("Expected summer-sale_24, got %s", alias)
	}

	// Custom alias taken
	_, err = GenerateAlias(ctx, "taken", checker)
	if !errors.Is(err, ErrAliasTaken) {
		t.Errorf("Expected ErrAliasTaken, got %v", err)
	}

	// Checker failure propagates
	_, err = GenerateAlias(ctx, "error", checker)
	if err == nil || errors.Is(err, ErrAliasTaken) {
		t.Errorf("Expected db error, got %v", err)
	}

	// Random alias generation
	alias, err = GenerateAlias(ctx, "", checker)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if len(alias) != aliasLength {
		t.Errorf("Expected length %d, got %d", aliasLength, len(alias))
	}
	if !IsValidAlias(alias) {
		t.Errorf("generated alias %q is not valid", alias)
	}
}

func TestIsValidAlias(t *testing.T) {
	tests := map[string]bool{
		"abc":                                  true,
		"ab":                                   false,
		"Promo_2024":                           true,
		"has space":                            false,
		"slash/no":                             false,
		"ADMIN":                                false,
		"metrics":                              false,
		"ünïcode":                              false,
		"a-very-long-alias-that-exceeds-limit": false,
	}
	for in, want := range tests {
		if got := IsValidAlias(in); got != want {
			t.Errorf("IsValidAlias(%q) = %v, want %v", in, got, want)
		}
	}
}
