package links

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	aliasChars     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	aliasLength    = 7
	aliasMinLength = 3
	aliasMaxLength = 32
)

var reservedAliases = []string{
	"api", "admin", "analytics", "dashboard", "login", "logout", "signup",
	"health", "healthz", "metrics", "urls", "static", "assets", "qr",
}

var errAliasExhausted = errors.New("failed to generate unique alias")

type AliasChecker interface {
	ExistsByAlias(ctx context.Context, alias string) (bool, error)
}

// GenerateAlias returns custom when it is valid and free, otherwise a random
// base62 alias.
func GenerateAlias(ctx context.Context, custom string, checker AliasChecker) (string, error) {
	// Use custom alias if provided
	if custom != "" {
		if !IsValidAlias(custom) {
			return "", ErrInvalidAlias
		}

		exists, err := checker.ExistsByAlias(ctx, custom)
		if err != nil {
			return "", err
		}
		if exists {
			return "", ErrAliasTaken
		}

		return custom, nil
	}

	// Generate random alias with collision retry
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		alias, err := randomAlias(aliasLength)
		if err != nil {
			return "", err
		}

		exists, err := checker.ExistsByAlias(ctx, alias)
		if err != nil {
			return "", err
		}
		if !exists {
			return alias, nil
		}
	}

	// If collisions persist, try once more with a longer alias
	alias, err := randomAlias(aliasLength + 1)
	if err != nil {
		return "", err
	}
	exists, err := checker.ExistsByAlias(ctx, alias)
	if err != nil {
		return "", err
	}
	if exists {
		return "", errAliasExhausted
	}

	return alias, nil
}

func randomAlias(length int) (string, error) {
	max := big.NewInt(int64(len(aliasChars)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = aliasChars[n.Int64()]
	}
	return string(b), nil
}

// IsValidAlias reports whether alias may be claimed by a link owner.
func IsValidAlias(alias string) bool {
	if len(alias) < aliasMinLength || len(alias) > aliasMaxLength {
		return false
	}

	for _, c := range alias {
		if !strings.ContainsRune(aliasChars, c) && c != '-' && c != '_' {
			return false
		}
	}

	for _, r := range reservedAliases {
		if strings.EqualFold(alias, r) {
			return false
		}
	}

	return true
}
