package teardown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type log struct{ released []string }

func (l *log) releaser(name string) Releaser {
	return ReleaseFunc(func() { l.released = append(l.released, name) })
}

func TestReleaseReverseCreationOrder(t *testing.T) {
	l := &log{}
	s := NewSequencer()
	require.NoError(t, s.Track("device", l.releaser("device")))
	require.NoError(t, s.Track("queue", l.releaser("queue"), "device"))
	require.NoError(t, s.Track("surface", l.releaser("surface")))
	require.NoError(t, s.Track("pipeline", l.releaser("pipeline"), "device"))
	require.NoError(t, s.Track("buffer", l.releaser("buffer"), "device"))
	require.NoError(t, s.Track("bind_group", l.releaser("bind_group"), "buffer"))

	s.Release()

	assert.Equal(t, []string{"bind_group", "buffer", "pipeline", "surface", "queue", "device"}, l.released)
	assert.Empty(t, s.Live())

	s.Release()
	assert.Len(t, l.released, 6, "second Release must not release again")
}

func TestTrackRejectsBadDependencies(t *testing.T) {
	l := &log{}
	s := NewSequencer()

	assert.Error(t, s.Track("queue", l.releaser("queue"), "device"))
	assert.Error(t, s.Track("nil", nil))

	require.NoError(t, s.Track("device", l.releaser("device")))
	assert.Error(t, s.Track("device", l.releaser("device")))

	require.NoError(t, s.ReleaseOne("device"))
	assert.Error(t, s.Track("queue", l.releaser("queue"), "device"))
}

func TestReleaseOne(t *testing.T) {
	l := &log{}
	s := NewSequencer()
	require.NoError(t, s.Track("instance", l.releaser("instance")))
	require.NoError(t, s.Track("adapter", l.releaser("adapter"), "instance"))
	require.NoError(t, s.Track("device", l.releaser("device"), "adapter"))

	assert.Error(t, s.ReleaseOne("adapter"), "device still depends on adapter")
	assert.Error(t, s.ReleaseOne("missing"))

	require.NoError(t, s.ReleaseOne("device"))
	require.NoError(t, s.ReleaseOne("adapter"))
	assert.Error(t, s.ReleaseOne("adapter"))
	assert.Equal(t, []string{"instance"}, s.Live())

	s.Release()
	assert.Equal(t, []string{"device", "adapter", "instance"}, l.released)
}
