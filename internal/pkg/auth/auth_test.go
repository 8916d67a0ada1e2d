package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/enrolladmin/internal/app/models"
)

func testService() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "enrolladmin",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testService()
	studentID := int64(7)
	user := &models.User{ID: 3, Email: "jane@x.com", RoleType: models.RoleStudent, StudentID: &studentID}

	token, expiresIn, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.Equal(t, 3600, expiresIn)

	claims, err := svc.ValidateAndExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, "student", claims.Role)
	require.NotNil(t, claims.StudentID)
	assert.Equal(t, int64(7), *claims.StudentID)
	assert.False(t, claims.IsStaff())
}

func TestValidateTokenExpired(t *testing.T) {
	svc := testService()
	token, _, err := svc.GenerateAccessToken(&models.User{ID: 1, Email: "a@x.com", RoleType: models.RoleAdmin})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, err := testService().GenerateAccessToken(&models.User{ID: 1, Email: "a@x.com", RoleType: models.RoleAdmin})
	require.NoError(t, err)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "enrolladmin"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"abc", "abc", false},
		{"", "", true},
		{"Bearer   ", "", true},
		{"Basic abc", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractBearerToken(tt.header)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPasswordHashing(t *testing.T) {
	pw, err := GenerateTemporaryPassword(12)
	require.NoError(t, err)
	assert.Len(t, pw, 12)

	hash, err := HashPassword(pw)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, pw))
	assert.False(t, CheckPassword(hash, pw+"x"))
}

func TestStudentTokenNeedsStudentID(t *testing.T) {
	svc := testService()
	token, _, err := svc.GenerateAccessToken(&models.User{ID: 9, Email: "kid@x.com", RoleType: models.RoleStudent})
	require.NoError(t, err)

	_, err = svc.ValidateAndExtractClaims(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
