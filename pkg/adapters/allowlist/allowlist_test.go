package allowlist_test

import (
	"context"
	"testing"

	"github.com/aretw0/scribe/pkg/adapters/allowlist"
	"github.com/aretw0/scribe/pkg/domain"
	"github.com/aretw0/scribe/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Authorizer = (*allowlist.Allowlist)(nil)

func authorized(t *testing.T, a *allowlist.Allowlist, conn string, actor domain.Actor) bool {
	t.Helper()
	ok, err := a.IsAuthorized(context.Background(), conn, actor)
	require.NoError(t, err)
	return ok
}

func TestAllowlist_Users(t *testing.T) {
	a := allowlist.New("@Alice", "12345", "  bob ")

	assert.True(t, authorized(t, a, "", domain.Actor{ID: "1", Username: "alice"}))
	assert.True(t, authorized(t, a, "", domain.Actor{ID: "1", Username: "ALICE"}))
	assert.True(t, authorized(t, a, "", domain.Actor{ID: "12345"}))
	assert.True(t, authorized(t, a, "", domain.Actor{Username: "@Bob"}))
	assert.False(t, authorized(t, a, "", domain.Actor{ID: "2", Username: "mallory"}))
	assert.False(t, authorized(t, a, "", domain.Actor{}))

	assert.Equal(t, []string{"@alice", "@bob", "ID:12345"}, a.Users())
}

func TestAllowlist_AddRemove(t *testing.T) {
	a := allowlist.New()
	actor := domain.Actor{ID: "7", Username: "carol"}

	assert.False(t, authorized(t, a, "", actor), "empty list fails closed")

	assert.True(t, a.Add("@carol"))
	assert.False(t, a.Add("carol"), "duplicate add")
	assert.True(t, authorized(t, a, "", actor))

	assert.True(t, a.Remove("@Carol"))
	assert.False(t, a.Remove("@carol"))
	assert.False(t, authorized(t, a, "", actor))

	assert.False(t, a.Add("   "))
}

func TestAllowlist_Owners(t *testing.T) {
	a := allowlist.New()
	owner := domain.Actor{ID: "99"}

	assert.False(t, authorized(t, a, "conn-1", owner))

	a.SetOwner("conn-1", "99")
	got, ok := a.Owner("conn-1")
	require.True(t, ok)
	assert.Equal(t, "99", got)

	assert.True(t, authorized(t, a, "conn-1", owner))
	assert.False(t, authorized(t, a, "conn-2", owner), "ownership is per connection")
	assert.False(t, authorized(t, a, "", owner))

	a.RemoveOwner("conn-1")
	assert.False(t, authorized(t, a, "conn-1", owner))
}

func TestAllowlist_Wildcard(t *testing.T) {
	a := allowlist.New("*")
	assert.True(t, authorized(t, a, "", domain.Actor{ID: "anyone"}))
	assert.Equal(t, []string{"*"}, a.Users())

	assert.True(t, a.Remove("*"))
	assert.False(t, authorized(t, a, "", domain.Actor{ID: "anyone"}))
}
