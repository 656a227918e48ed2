package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(clock *fakeClock) *Service {
	return NewService(Config{
		Secret:    []byte("test-secret"),
		AccessTTL: 4000 * time.Minute,
		ResetTTL:  15 * time.Minute,
	}, WithClock(clock.Now))
}

func TestIssueAccessToken_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(clock)

	tok, err := svc.IssueAccessToken("a@x.io")
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(4000*time.Minute), tok.ExpiresAt)
	assert.NotEmpty(t, tok.ID)

	email, err := svc.Verify(tok.Value, PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", email)

	claims, err := svc.Parse(tok.Value, PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, claims.ID)
	assert.Equal(t, clock.t.Unix(), claims.IssuedAt.Unix())
}

func TestVerify_Expired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(clock)

	tok, err := svc.IssuePasswordResetToken("a@x.io")
	require.NoError(t, err)

	clock.Advance(14 * time.Minute)
	_, err = svc.Verify(tok.Value, PurposeReset)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = svc.Verify(tok.Value, PurposeReset)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsWrongPurpose(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestService(clock)

	reset, err := svc.IssuePasswordResetToken("a@x.io")
	require.NoError(t, err)
	_, err = svc.Verify(reset.Value, PurposeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)

	access, err := svc.IssueAccessToken("a@x.io")
	require.NoError(t, err)
	_, err = svc.Verify(access.Value, PurposeReset)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsTampering(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestService(clock)
	other := NewService(Config{Secret: []byte("other-secret")}, WithClock(clock.Now))

	tok, err := other.IssueAccessToken("a@x.io")
	require.NoError(t, err)
	_, err = svc.Verify(tok.Value, PurposeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify("not-a-jwt", PurposeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestService(clock)

	claims := Claims{
		Purpose: PurposeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a@x.io",
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(hs512, PurposeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(none, PurposeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RequiresExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestService(clock)

	claims := Claims{Purpose: PurposeAccess, RegisteredClaims: jwt.RegisteredClaims{Subject: "a@x.io"}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(raw, PurposeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}
