package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestIssuer(t *testing.T, clk *fakeClock) *Issuer {
	t.Helper()
	i, err := NewIssuer(Settings{
		Secret:     []byte(testSecret),
		Issuer:     "warden",
		Audience:   "warden-clients",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	}, WithClock(clk.Now))
	require.NoError(t, err)
	return i
}

func TestNewIssuer_RejectsShortSecret(t *testing.T) {
	_, err := NewIssuer(Settings{Secret: []byte("short"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.ErrorIs(t, err, ErrWeakSecret)

	_, err = NewIssuer(Settings{Secret: []byte(testSecret), AccessTTL: 0, RefreshTTL: time.Hour})
	require.Error(t, err)
}

func TestIssueAccess_RoundTrip(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 5, 10, 8, 30, 15, 500, time.UTC)}
	iss := newTestIssuer(t, clk)
	uid := uuid.New()

	token, exp, err := iss.IssueAccess(uid, "a@x.com", []string{"Member", "Admin"})
	require.NoError(t, err)
	assert.Equal(t, clk.t.Truncate(time.Second).Add(30*time.Minute), exp)

	p, err := iss.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, uid, p.UserID)
	assert.Equal(t, "a@x.com", p.Email)
	assert.Equal(t, []string{"Member", "Admin"}, p.Roles)
	assert.NotEmpty(t, p.TokenID)
}

func TestIssueAccess_UniqueIDs(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newTestIssuer(t, clk)
	uid := uuid.New()

	seen := map[string]bool{}
	for n := 0; n < 20; n++ {
		token, _, err := iss.IssueAccess(uid, "a@x.com", nil)
		require.NoError(t, err)
		p, err := iss.ParseAccess(token)
		require.NoError(t, err)
		require.False(t, seen[p.TokenID], "jti reused")
		seen[p.TokenID] = true
	}
}

func TestParseAccess_Expired(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newTestIssuer(t, clk)

	token, exp, err := iss.IssueAccess(uuid.New(), "a@x.com", nil)
	require.NoError(t, err)

	clk.t = exp.Add(time.Second)
	_, err = iss.ParseAccess(token)
	require.ErrorIs(t, err, ErrTokenInvalid)

	uid, err := iss.SubjectOfAccess(token)
	require.NoError(t, err, "subject is still readable from an expired token")
	assert.NotEqual(t, uuid.Nil, uid)
}

func TestParseAccess_RejectsTampering(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newTestIssuer(t, clk)

	token, _, err := iss.IssueAccess(uuid.New(), "a@x.com", []string{"Member"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged := parts[0] + "." + parts[1] + "x." + parts[2]
	_, err = iss.ParseAccess(forged)
	require.ErrorIs(t, err, ErrTokenInvalid)

	other, err := NewIssuer(Settings{
		Secret: []byte(strings.Repeat("z", 40)), Issuer: "warden", Audience: "warden-clients",
		AccessTTL: time.Minute, RefreshTTL: time.Hour,
	}, WithClock(clk.Now))
	require.NoError(t, err)
	_, err = other.ParseAccess(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseAccess_RejectsOtherAlgorithms(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newTestIssuer(t, clk)

	claims := Claims{
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "warden",
			Audience:  jwt.ClaimStrings{"warden-clients"},
			IssuedAt:  jwt.NewNumericDate(clk.t),
			ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
			ID:        uuid.NewString(),
		},
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = iss.ParseAccess(hs512)
	require.ErrorIs(t, err, ErrTokenInvalid)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.ParseAccess(none)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newTestIssuer(t, clk)
	uid := uuid.New()

	access, _, err := iss.IssueAccess(uid, "a@x.com", nil)
	require.NoError(t, err)
	refresh, jti, exp, err := iss.IssueRefreshJWT(uid, "a@x.com")
	require.NoError(t, err)

	_, err = iss.ValidateAndExtractRefreshInfo(access)
	require.ErrorIs(t, err, ErrTokenInvalid)
	_, err = iss.ParseAccess(refresh)
	require.ErrorIs(t, err, ErrTokenInvalid)

	info, err := iss.ValidateAndExtractRefreshInfo(refresh)
	require.NoError(t, err)
	assert.Equal(t, uid, info.UserID)
	assert.Equal(t, jti, info.TokenID)
	assert.Equal(t, exp, info.ExpiresAt)
}

func TestValidateAndExtractRefreshInfo_FailsClosed(t *testing.T) {
	clk := &fakeClock{t: time.Now().UTC()}
	iss := newTestIssuer(t, clk)

	for _, raw := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.e30."} {
		info, err := iss.ValidateAndExtractRefreshInfo(raw)
		require.ErrorIs(t, err, ErrTokenInvalid, raw)
		assert.Zero(t, info)
	}
}
