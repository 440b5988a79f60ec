package auth

import (
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/require"

	"github.com/yola1107/ludo-arbiter/pkg/codes"
)

func TestIssueAndParse(t *testing.T) {
	token, err := Issue("secret", "ludo", time.Minute, "alice", "m1", 2)
	require.NoError(t, err)

	claims, err := Parse("secret", "ludo", token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, "m1", claims.Match)
	require.Equal(t, int32(2), claims.Seat)

	peek, err := Peek(token)
	require.NoError(t, err)
	require.Equal(t, claims.Subject, peek.Subject)
}

func TestParseRejects(t *testing.T) {
	token, err := Issue("secret", "ludo", time.Minute, "alice", "m1", 0)
	require.NoError(t, err)

	_, err = Parse("other", "ludo", token)
	require.True(t, errors.Is(err, codes.ErrTokenInvalid))

	_, err = Parse("secret", "someone", token)
	require.Error(t, err)

	expired, err := Issue("secret", "ludo", -time.Minute, "alice", "m1", 0)
	require.NoError(t, err)
	_, err = Parse("secret", "ludo", expired)
	require.NoError(t, err, "non-positive ttl never expires")

	noMatch, err := Issue("secret", "ludo", time.Minute, "alice", "", 0)
	require.NoError(t, err)
	_, err = Parse("secret", "ludo", noMatch)
	require.Error(t, err)

	_, err = Peek("not-a-token")
	require.Error(t, err)
}
