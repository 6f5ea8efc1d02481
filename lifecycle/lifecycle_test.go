package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"kestrel/container"
)

type recorder struct{ calls []string }

func (r *recorder) hook(name string, startErr, stopErr error) Hook {
	return Hook{
		Name: name,
		OnStart: func(context.Context) error {
			r.calls = append(r.calls, "start:"+name)
			return startErr
		},
		OnStop: func(context.Context) error {
			r.calls = append(r.calls, "stop:"+name)
			return stopErr
		},
	}
}

func TestManager_StartStopOrder(t *testing.T) {
	rec := &recorder{}
	m := NewManager(zaptest.NewLogger(t).Sugar())
	require.NoError(t, m.Append(rec.hook("a", nil, nil)))
	require.NoError(t, m.Append(rec.hook("b", nil, nil)))
	require.NoError(t, m.Append(Hook{Name: "no-callbacks"}))

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	assert.True(t, m.Running())
	assert.ErrorIs(t, m.Start(ctx), ErrStarted)
	assert.ErrorIs(t, m.Append(Hook{Name: "late"}), ErrStarted)

	require.NoError(t, m.Stop(ctx))
	assert.False(t, m.Running())
	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, rec.calls)

	require.NoError(t, m.Stop(ctx), "second stop is a no-op")
	assert.Len(t, rec.calls, 4)
}

func TestManager_StartFailureRollsBack(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	m := NewManager(nil)
	require.NoError(t, m.Append(rec.hook("a", nil, nil)))
	require.NoError(t, m.Append(rec.hook("b", nil, nil)))
	require.NoError(t, m.Append(rec.hook("c", boom, nil)))
	require.NoError(t, m.Append(rec.hook("d", nil, nil)))

	err := m.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.Running())
	assert.Equal(t, []string{"start:a", "start:b", "start:c", "stop:b", "stop:a"}, rec.calls)
}

func TestManager_StopJoinsErrors(t *testing.T) {
	rec := &recorder{}
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	m := NewManager(nil)
	require.NoError(t, m.Append(rec.hook("a", nil, errA)))
	require.NoError(t, m.Append(rec.hook("b", nil, errB)))

	require.NoError(t, m.Start(context.Background()))
	err := m.Stop(context.Background())
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, rec.calls)
}

func TestModule_BindsManagerPerContainer(t *testing.T) {
	first, err := container.Build([]container.Module{Module()})
	require.NoError(t, err)
	second, err := container.Build([]container.Module{Module()})
	require.NoError(t, err)

	m1 := container.MustResolve[*Manager](first)
	m2 := container.MustResolve[*Manager](second)
	assert.NotSame(t, m1, m2)
	assert.Same(t, m1, container.MustResolve[*Manager](first))
}
