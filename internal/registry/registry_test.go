package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRegistry_RegisterIsIdempotent(t *testing.T) {
	reg := NewSourceRegistry(&fakeProvider{}, "", nil)

	first := reg.Register(Config{Owner: "acme", Repo: "widgets"})
	second := reg.Register(Config{Owner: "acme", Repo: "widgets"})

	assert.Same(t, first, second)
}

func TestSourceRegistry_RegisterAssignsGlobalToken(t *testing.T) {
	reg := NewSourceRegistry(&fakeProvider{}, "global-token", nil)

	source := reg.Register(Config{Owner: "acme", Repo: "widgets"})
	assert.Equal(t, "global-token", source.GetConfig().Token)
}

func TestSourceRegistry_RegisterPreservesExplicitToken(t *testing.T) {
	reg := NewSourceRegistry(&fakeProvider{}, "global-token", nil)

	source := reg.Register(Config{Owner: "acme", Repo: "widgets", Token: "explicit"})
	assert.Equal(t, "explicit", source.GetConfig().Token)
}

func TestSourceRegistry_IsRegistered(t *testing.T) {
	reg := NewSourceRegistry(&fakeProvider{}, "", nil)
	assert.False(t, reg.IsRegistered("acme/widgets"))

	reg.Register(Config{Owner: "acme", Repo: "widgets"})
	assert.True(t, reg.IsRegistered("acme/widgets"))
}

func TestSourceRegistry_GetNotRegistered(t *testing.T) {
	reg := NewSourceRegistry(&fakeProvider{}, "", nil)

	_, err := reg.Get("acme/widgets")
	require.Error(t, err)
	var notRegistered *ErrNotRegistered
	assert.ErrorAs(t, err, &notRegistered)
}

func TestSourceRegistry_GetAll(t *testing.T) {
	reg := NewSourceRegistry(&fakeProvider{}, "", nil)
	reg.Register(Config{Owner: "acme", Repo: "widgets"})
	reg.Register(Config{Owner: "acme", Repo: "gadgets"})

	all := reg.GetAll()
	assert.Len(t, all, 2)
}
