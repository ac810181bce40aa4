package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/displayctl/internal/backend"
	"github.com/jmylchreest/displayctl/internal/identity"
	"github.com/jmylchreest/displayctl/internal/model"
)

func TestLookupByIndex(t *testing.T) {
	displays := []model.Display{{Handle: 10}, {Handle: 20}}

	t.Run("found", func(t *testing.T) {
		d := LookupByIndex(displays, 1)
		require.NotNil(t, d)
		assert.Equal(t, model.Handle(20), d.Handle)
	})

	t.Run("out of range", func(t *testing.T) {
		assert.Nil(t, LookupByIndex(displays, 2))
		assert.Nil(t, LookupByIndex(displays, -1))
		assert.Nil(t, LookupByIndex(nil, 0))
	})
}

func TestFindDisplay(t *testing.T) {
	sim := backend.NewSim(backend.DefaultSimDisplays(), nil)
	resolver := identity.NewResolver(sim, nil)
	displays, err := sim.Displays()
	require.NoError(t, err)

	tests := []struct {
		name   string
		ref    string
		handle model.Handle
	}{
		{"index", "1", 2},
		{"index with spaces", " 0 ", 1},
		{"handle", "#2", 2},
		{"stable id", "e5d1a4c0-8b3e-4f6a-9c2d-1f0b7a6e5d4c", 2},
		{"name", "built-in panel", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := FindDisplay(displays, tt.ref, resolver)
			require.NoError(t, err)
			assert.Equal(t, tt.handle, d.Handle)
		})
	}
}

func TestFindDisplay_NotFound(t *testing.T) {
	sim := backend.NewSim(backend.DefaultSimDisplays(), nil)
	resolver := identity.NewResolver(sim, nil)
	displays, err := sim.Displays()
	require.NoError(t, err)

	for _, ref := range []string{"", "2", "-1", "#99", "#x", "DISPLAY_ID_1", "HDMI-9"} {
		_, err := FindDisplay(displays, ref, resolver)
		assert.ErrorIs(t, err, ErrNoSuchDisplay, "ref %q", ref)
	}
}
