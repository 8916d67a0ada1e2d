package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yigit/enrolladmin/internal/app/models"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidFormat = errors.New("invalid token format")
)

// JWTConfig holds the signing settings read from the jwt config section
type JWTConfig struct {
	SecretKey      string
	AccessTokenExp time.Duration
	TokenIssuer    string
}

// JWTService issues and checks HS256 access tokens. There are no refresh
// tokens; clients log in again once a token expires.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewJWTService(cfg JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.SecretKey),
		ttl:    cfg.AccessTokenExp,
		issuer: cfg.TokenIssuer,
		now:    time.Now,
	}
}

// Claims carries the principal. StudentID is set for student accounts only.
type Claims struct {
	UserID    int64  `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	StudentID *int64 `json:"studentId,omitempty"`
	jwt.RegisteredClaims
}

// IsStaff reports whether the token holder may manage any student's records
func (c *Claims) IsStaff() bool {
	return models.RoleType(c.Role).IsStaff()
}

// GenerateAccessToken signs a token for user and returns it with its lifetime in seconds
func (s *JWTService) GenerateAccessToken(user *models.User) (string, int, error) {
	issuedAt := s.now()
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.RoleType),
		StudentID: user.StudentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign access token for user %d: %w", user.ID, err)
	}
	return signed, int(s.ttl / time.Second), nil
}

// ValidateToken checks signature, issuer and time claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

// ValidateAndExtractClaims validates the token and rejects claims that do not
// describe a usable principal.
func (s *JWTService) ValidateAndExtractClaims(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	role := models.RoleType(claims.Role)
	switch {
	case claims.UserID <= 0, claims.Email == "", !role.IsValid():
		return nil, ErrInvalidToken
	case role == models.RoleStudent && claims.StudentID == nil:
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearerToken accepts "Bearer <token>" or a bare token
func ExtractBearerToken(header string) (string, error) {
	fields := strings.Fields(header)
	switch {
	case len(fields) == 1 && fields[0] != "Bearer":
		return fields[0], nil
	case len(fields) == 2 && fields[0] == "Bearer":
		return fields[1], nil
	default:
		return "", ErrInvalidFormat
	}
}
