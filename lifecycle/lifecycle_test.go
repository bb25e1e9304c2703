package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRunsRegisteredHandler(t *testing.T) {
	reg := NewRegistry()
	var got Event
	reg.Register(Sync, func(ctx context.Context, ev Event) error {
		got = ev
		return nil
	})

	err := reg.Dispatch(context.Background(), Event{Kind: Sync, Tag: "sync-analyses"})

	require.NoError(t, err)
	assert.Equal(t, "sync-analyses", got.Tag)
}

func TestDispatchUnregisteredKindFails(t *testing.T) {
	reg := NewRegistry()

	err := reg.Dispatch(context.Background(), Event{Kind: Push})

	assert.Error(t, err)
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	reg.Register(Install, func(ctx context.Context, ev Event) error {
		return boom
	})

	err := reg.Dispatch(context.Background(), Event{Kind: Install})

	assert.ErrorIs(t, err, boom)
}

func TestRegisterReplacesHandler(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Activate, func(ctx context.Context, ev Event) error {
		return errors.New("old")
	})
	reg.Register(Activate, func(ctx context.Context, ev Event) error {
		return nil
	})

	assert.NoError(t, reg.Dispatch(context.Background(), Event{Kind: Activate}))
}
