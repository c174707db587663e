package reviewdb

import "errors"
import "fmt"
import "testing"

import pkgerrors "github.com/pkg/errors"
import "github.com/stretchr/testify/require"

func TestWrappedError(t *testing.T) {
	cause := errors.New("no hosts available")
	err := WrapError(ErrConnection, "unable to establish a session", cause)

	require.EqualError(t, err, "connection failure: unable to establish a session: no hosts available")
	require.ErrorIs(t, err, ErrConnection)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrQuery)
	require.Equal(t, ErrConnection, Kind(err))

	bare := WrapError(ErrQuery, "nothing underneath", nil)
	require.EqualError(t, bare, "query failure: nothing underneath")
	require.Nil(t, errors.Unwrap(bare))
}

func TestKind(t *testing.T) {
	require.Nil(t, Kind(nil))
	require.Nil(t, Kind(errors.New("plain")))

	inner := WrapError(ErrInvalidName, "table \"x-y\"", nil)
	outer := wrapf(ErrSchemaOperation, inner, "create table %s", "ks.x-y")
	require.Equal(t, ErrSchemaOperation, Kind(outer), "the outermost kind wins")
	require.Equal(t, ErrSchemaOperation, Kind(fmt.Errorf("context: %w", outer)))
	require.ErrorIs(t, outer, ErrInvalidName)
}

func TestWithStack(t *testing.T) {
	cause := errors.New("timeout")
	err := withStack(cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, fmt.Sprintf("%+v", err), "TestWithStack")

	_, ok := err.(interface{ StackTrace() pkgerrors.StackTrace })
	require.True(t, ok)
	require.Nil(t, withStackOrNil(nil))
}
