package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenPair is handed to a client after login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims carries the identity inside a token. The user id is the subject.
type Claims struct {
	Email string `json:"email"`
	Kind  string `json:"kind"`
	jwt.RegisteredClaims
}

type Tokens struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokens(cfg TokenConfig) *Tokens {
	return &Tokens{cfg: cfg, now: time.Now}
}

// Issue signs a fresh access/refresh pair for the identity.
func (m *Tokens) Issue(id Identity) (TokenPair, error) {
	access, err := m.sign(id, kindAccess, m.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(id, kindRefresh, m.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.cfg.AccessTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func (m *Tokens) sign(id Identity, kind string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		Email: id.Email,
		Kind:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
}

// Verify checks signature, expiry and token kind.
func (m *Tokens) Verify(token, kind string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(m.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Kind != kind || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
