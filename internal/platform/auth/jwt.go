package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"linkroute/internal/platform/config"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	audienceAPI    = "linkroute-api"
	audienceUnlock = "linkroute-unlock"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongAlias   = errors.New("unlock token issued for another link")
)

// Claims are carried by access tokens issued by the identity service.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// UnlockClaims prove a visitor passed the password gate of one alias.
type UnlockClaims struct {
	Alias string `json:"alias"`
	jwt.RegisteredClaims
}

type TokenService struct {
	config config.JWTConfig
	now    func() time.Time
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	if cfg.Issuer == "" {
		cfg.Issuer = "linkroute"
	}
	if cfg.UnlockTokenTTL <= 0 {
		cfg.UnlockTokenTTL = 30 * time.Minute
	}
	return &TokenService{config: cfg, now: time.Now}
}

// GenerateAccessToken signs an API token. Production tokens come from the
// identity service; this exists for tooling and tests.
func (s *TokenService) GenerateAccessToken(userID, role string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audienceAPI},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenString, claims, audienceAPI); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateUnlockToken issues a short lived token for alias.
func (s *TokenService) GenerateUnlockToken(alias string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.UnlockTokenTTL)
	claims := UnlockClaims{
		Alias: alias,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{audienceUnlock},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	return signed, expiresAt, err
}

// VerifyUnlockToken checks that token is valid and was issued for alias.
func (s *TokenService) VerifyUnlockToken(tokenString, alias string) error {
	claims := &UnlockClaims{}
	if err := s.parse(tokenString, claims, audienceUnlock); err != nil {
		return err
	}
	if claims.Alias != alias {
		return ErrWrongAlias
	}
	return nil
}

func (s *TokenService) parse(tokenString string, claims jwt.Claims, audience string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	},
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
