package convention

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/container"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		base   string
		suffix string
		want   Name
	}{
		{"", ModuleSuffix, "conf.Module"},
		{"com.example", ModuleSuffix, "com.example.conf.Module"},
		{"hello", RoutesSuffix, "hello.conf.Routes"},
		{"a.b.c", ServletModuleSuffix, "a.b.c.conf.ServletModule"},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.base, tt.suffix))
		})
	}
}

func TestName_Valid(t *testing.T) {
	assert.True(t, Name("conf.Module").Valid())
	assert.True(t, Name("_x.y2").Valid())
	assert.False(t, Name("").Valid())
	assert.False(t, Name("a..b").Valid())
	assert.False(t, Name(".a").Valid())
	assert.False(t, Name("a/b").Valid())
	assert.False(t, Name("9a").Valid())
}

func TestCatalog_Register(t *testing.T) {
	c := NewCatalog()
	f := func(container.Resolver) (any, error) { return "x", nil }

	require.NoError(t, c.Register("app.conf.Module", f))
	assert.ErrorIs(t, c.Register("app.conf.Module", f), ErrDuplicate)
	assert.Error(t, c.Register("bad name", f))
	assert.Error(t, c.Register("app.conf.Routes", nil))
	assert.Panics(t, func() { c.MustRegister("app.conf.Module", f) })

	require.NoError(t, c.Register("a.conf.Routes", f))
	assert.Equal(t, []Name{"a.conf.Routes", "app.conf.Module"}, c.Names())

	assert.True(t, c.Unregister("a.conf.Routes"))
	assert.False(t, c.Unregister("a.conf.Routes"))
}

func TestResolver_ExistsDoesNotInstantiate(t *testing.T) {
	calls := 0
	c := NewCatalog()
	c.MustRegister("app.conf.Module", func(container.Resolver) (any, error) {
		calls++
		return "module", nil
	})
	r := NewResolver(c, 8)

	ok, err := r.Exists("app.conf.Module")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Exists("app.conf.Routes")
	require.NoError(t, err, "absence is not an error")
	assert.False(t, ok)

	assert.Equal(t, 0, calls)
}

func TestResolver_MalformedName(t *testing.T) {
	r := NewResolver(NewCatalog(), 0)

	_, err := r.Exists("not a name")
	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, Name("not a name"), le.Name)
}

type failingDiscovery struct{ err error }

func (d failingDiscovery) Lookup(Name) (Factory, bool, error) { return nil, false, d.err }

func TestResolver_DiscoveryFailure(t *testing.T) {
	denied := errors.New("access denied")
	r := NewResolver(failingDiscovery{err: denied}, 4)

	_, err := r.Exists("conf.Module")
	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, denied)
}

type countingDiscovery struct {
	Discovery
	lookups int
}

func (d *countingDiscovery) Lookup(n Name) (Factory, bool, error) {
	d.lookups++
	return d.Discovery.Lookup(n)
}

func TestResolver_CachesLookups(t *testing.T) {
	d := &countingDiscovery{Discovery: NewCatalog()}
	r := NewResolver(d, 4)

	for i := 0; i < 3; i++ {
		_, err := r.Exists("conf.Routes")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, d.lookups)

	r.Purge()
	_, err := r.Exists("conf.Routes")
	require.NoError(t, err)
	assert.Equal(t, 2, d.lookups)
}

func TestResolver_Instantiate(t *testing.T) {
	boom := errors.New("boom")
	c := NewCatalog()
	c.MustRegister("ok", func(container.Resolver) (any, error) { return 42, nil })
	c.MustRegister("fails", func(container.Resolver) (any, error) { return nil, boom })
	c.MustRegister("panics", func(container.Resolver) (any, error) { panic("no default constructor") })
	c.MustRegister("empty", func(container.Resolver) (any, error) { return nil, nil })
	r := NewResolver(c, 8)

	v, err := r.Instantiate("ok", container.Unavailable)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = r.Instantiate("fails", container.Unavailable)
	assert.ErrorIs(t, err, boom)

	_, err = r.Instantiate("panics", container.Unavailable)
	assert.ErrorContains(t, err, "no default constructor")

	_, err = r.Instantiate("empty", container.Unavailable)
	assert.Error(t, err)

	_, err = r.Instantiate("missing", container.Unavailable)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChain(t *testing.T) {
	first := NewCatalog()
	second := NewCatalog()
	first.MustRegister("a", func(container.Resolver) (any, error) { return "first", nil })
	second.MustRegister("a", func(container.Resolver) (any, error) { return "second", nil })
	second.MustRegister("b", func(container.Resolver) (any, error) { return "b", nil })

	r := NewResolver(Chain(first, second), 4)

	v, err := r.Instantiate("a", container.Unavailable)
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	ok, err := r.Exists("b")
	require.NoError(t, err)
	assert.True(t, ok)

	boom := errors.New("boom")
	_, _, err = Chain(failingDiscovery{err: boom}, second).Lookup("b")
	assert.ErrorIs(t, err, boom)
}
