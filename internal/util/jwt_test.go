package util

import (
	"testing"
	"time"

	"speakopoly_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

func TestGenerateAndParseJWT(t *testing.T) {
	user := &model.User{Email: "ada@example.com", Role: model.Learner}
	user.ID = 42

	token, err := GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.Learner, claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestParseJWTRejects(t *testing.T) {
	user := &model.User{Email: "ada@example.com", Role: model.Learner}
	user.ID = 1

	expired, err := GenerateJWT(user, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, testSecret)
	assert.Error(t, err)

	valid, err := GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(valid, "another-secret-another-secret-00")
	assert.Error(t, err)

	_, err = ParseJWT("not-a-token", testSecret)
	assert.Error(t, err)
}

func TestParseIntBounded(t *testing.T) {
	assert.Equal(t, 20, ParseIntBounded("20", 50, 1, 100))
	assert.Equal(t, 50, ParseIntBounded("abc", 50, 1, 100))
	assert.Equal(t, 50, ParseIntBounded("0", 50, 1, 100))
	assert.Equal(t, 50, ParseIntBounded("500", 50, 1, 100))
	assert.Equal(t, uint(7), MustParseUint("7"))
	assert.Equal(t, uint(0), MustParseUint("x"))
}
