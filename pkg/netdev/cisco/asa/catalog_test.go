package asa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogLookup(t *testing.T) {
	c := DefaultCatalog()
	cases := map[string]string{
		KindDelimiterUnprivileged: ">",
		KindDelimiterPrivileged:   "#",
		KindDisablePaging:         "terminal pager 0",
		KindPrivEnter:             "enable",
		KindPrivExit:              "disable",
		KindConfigEnter:           "conf t",
		KindConfigExit:            "end",
		KindConfigCheck:           ")#",
		KindCheckConfigMode:       ")#",
	}
	for kind, want := range cases {
		got, err := c.Lookup(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, want, got, kind)
	}
	assert.Len(t, c.Kinds(), 10)
}

func TestCatalogUnknownKind(t *testing.T) {
	c := DefaultCatalog()
	_, err := c.Lookup("delimeter3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCommandKind))

	var kindErr *UnknownCommandKindError
	require.True(t, errors.As(err, &kindErr))
	assert.Equal(t, "delimeter3", kindErr.Kind)

	assert.Panics(t, func() { c.MustLookup("delimeter3") })
}

func TestCatalogEntriesIsCopy(t *testing.T) {
	c := DefaultCatalog()
	e := c.Entries()
	e[KindPrivEnter] = "login"
	assert.Equal(t, "enable", c.MustLookup(KindPrivEnter))
}
