package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyspend/ExpenseTracker/internal/user"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser() *user.User {
	return &user.User{
		ID:        uuid.New(),
		Email:     "alice@example.com",
		Name:      "Alice",
		Role:      user.RoleUser,
		HashToken: "hash-token",
	}
}

func TestSessionCodec_IssueAndParse(t *testing.T) {
	codec := NewSessionCodec(testSecret, DefaultSessionDuration)
	u := testUser()

	token, issued, err := codec.Issue(u)
	require.NoError(t, err)
	assert.Equal(t, issued.IssuedAt.Add(30*24*time.Hour), issued.ExpiresAt)

	parsed, err := codec.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, parsed.UserID)
	assert.Equal(t, u.Email, parsed.Email)
	assert.Equal(t, u.Name, parsed.Name)
	assert.Equal(t, u.Role, parsed.Role)
	assert.Equal(t, issued.IssuedAt, parsed.IssuedAt)
	assert.Equal(t, issued.ExpiresAt, parsed.ExpiresAt)
	assert.Equal(t, BindingFor(u.ID, u.HashToken), parsed.Binding)
}

func TestSessionCodec_Expired(t *testing.T) {
	codec := NewSessionCodec(testSecret, time.Hour)
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return issuedAt }

	token, _, err := codec.Issue(testUser())
	require.NoError(t, err)

	codec.now = func() time.Time { return issuedAt.Add(59 * time.Minute) }
	_, err = codec.Parse(token)
	require.NoError(t, err)

	codec.now = func() time.Time { return issuedAt.Add(61 * time.Minute) }
	_, err = codec.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredSession)
}

func TestSessionCodec_RejectsGarbage(t *testing.T) {
	codec := NewSessionCodec(testSecret, DefaultSessionDuration)
	token, _, err := codec.Issue(testUser())
	require.NoError(t, err)

	other := NewSessionCodec(strings.Repeat("x", 32), DefaultSessionDuration)
	foreign, _, err := other.Issue(testUser())
	require.NoError(t, err)

	inputs := []string{
		"",
		"garbage",
		"a.b.c",
		strings.Repeat("a", 4096),
		token[:len(token)-2],
		token + "x",
		foreign,
	}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			_, err := codec.Parse(input)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestSessionCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec := NewSessionCodec(testSecret, DefaultSessionDuration)
	u := testUser()
	now := time.Now()
	claims := &sessionClaims{
		UserID: u.ID.String(),
		Role:   user.RoleAdmin,
		CusKey: BindingFor(u.ID, u.HashToken),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidSession)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Parse(hs512)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionCodec_RequiresClaims(t *testing.T) {
	codec := NewSessionCodec(testSecret, DefaultSessionDuration)
	now := time.Now()

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &sessionClaims{
		UserID:           uuid.NewString(),
		CusKey:           "key",
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now)},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Parse(noExpiry)
	assert.ErrorIs(t, err, ErrInvalidSession)

	badUserID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &sessionClaims{
		UserID: "not-a-uuid",
		CusKey: "key",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Parse(badUserID)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestBindingFor_ChangesWithHashToken(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, BindingFor(id, "a"), BindingFor(id, "a"))
	assert.NotEqual(t, BindingFor(id, "a"), BindingFor(id, "b"))
	assert.NotEqual(t, BindingFor(id, "a"), BindingFor(uuid.New(), "a"))
}
