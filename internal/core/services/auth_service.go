package services

import (
	"errors"
	"time"

	"callroom/internal/core/domain"
	"callroom/pkg/validation"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type AuthService interface {
	GenerateToken(identity domain.Identity) (string, error)
	GenerateRefreshToken(userID domain.UserID) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
	VerifyAccessToken(tokenString string) (domain.Identity, error)
}

type Claims struct {
	UserID     domain.UserID `json:"userId"`
	Nickname   string        `json:"nickname,omitempty"`
	ProfileURL string        `json:"profileUrl,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		UserID:     c.UserID,
		Name:       c.Nickname,
		ProfileURL: c.ProfileURL,
	}
}

type authService struct {
	jwtSecret       []byte
	refreshSecret   []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

func NewAuthService(
	jwtSecret string,
	refreshSecret string,
	issuer string,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
) AuthService {
	return &authService{
		jwtSecret:       []byte(jwtSecret),
		refreshSecret:   []byte(refreshSecret),
		issuer:          issuer,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		now:             time.Now,
	}
}

func (s *authService) registered(ttl time.Duration, subject domain.UserID) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   string(subject),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func (s *authService) GenerateToken(identity domain.Identity) (string, error) {
	claims := &Claims{
		UserID:           identity.UserID,
		Nickname:         identity.Name,
		ProfileURL:       identity.ProfileURL,
		RegisteredClaims: s.registered(s.accessTokenTTL, identity.UserID),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *authService) GenerateRefreshToken(userID domain.UserID) (string, error) {
	claims := &Claims{
		UserID:           userID,
		RegisteredClaims: s.registered(s.refreshTokenTTL, userID),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.refreshSecret)
}

func (s *authService) parse(tokenString string, secret []byte) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if err := validation.ValidateUserID(string(claims.UserID)); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, s.jwtSecret)
}

func (s *authService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, s.refreshSecret)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}
	return claims, nil
}

// VerifyAccessToken maps every token failure to ErrInvalidCredential.
func (s *authService) VerifyAccessToken(tokenString string) (domain.Identity, error) {
	if tokenString == "" {
		return domain.Identity{}, domain.ErrInvalidCredential
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return domain.Identity{}, errors.Join(domain.ErrInvalidCredential, err)
	}
	return claims.Identity(), nil
}
