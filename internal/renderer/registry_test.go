package renderer_test

import (
	"testing"

	"github.com/stimkit/stimkit/internal/renderer"
	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct{ label string }

func (s *stubRenderer) Present() error       { return nil }
func (s *stubRenderer) Label() string        { return s.label }
func (s *stubRenderer) Prepare(label string) { s.label = label }

func stubFactory(plugin.Env) (plugin.Renderer, error) { return &stubRenderer{}, nil }

func TestStaticRegistry(t *testing.T) {
	reg := renderer.NewStaticRegistry()

	require.NoError(t, reg.Register("stub", stubFactory))
	require.NoError(t, reg.Register("another", stubFactory))

	var cfgErr *stimerrors.ConfigError
	require.ErrorAs(t, reg.Register("stub", stubFactory), &cfgErr)
	require.ErrorAs(t, reg.Register("", stubFactory), &cfgErr)
	require.ErrorAs(t, reg.Register("nil", nil), &cfgErr)

	factory, err := reg.Get("stub")
	require.NoError(t, err)
	r, err := factory(plugin.Env{})
	require.NoError(t, err)
	r.Prepare("X")
	assert.Equal(t, "X", r.Label())

	_, err = reg.Get("missing")
	var notFound *stimerrors.RendererNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.RendererName)

	assert.Equal(t, []string{"another", "stub"}, reg.List())
}

func TestRegister_PanicsOnDuplicate(t *testing.T) {
	renderer.Register("registry-test-stub", stubFactory)
	assert.Panics(t, func() { renderer.Register("registry-test-stub", stubFactory) })
	assert.Contains(t, renderer.Default().List(), "registry-test-stub")
}
