package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphicsoft-com/RHA-simulation/room"
)

func TestBadCronSpec(t *testing.T) {
	reg := room.New()
	defer reg.Close(context.Background())

	_, err := New(reg, func(o *Options) { o.StartSpec = "not a cron spec" })
	assert.ErrorContains(t, err, "invalid start schedule")

	_, err = New(reg, func(o *Options) { o.StopSpec = "61 * * * *" })
	assert.ErrorContains(t, err, "invalid stop schedule")
}

func TestStartStopLifecycle(t *testing.T) {
	reg := room.New()
	defer reg.Close(context.Background())

	s, err := New(reg, func(o *Options) {
		o.StartSpec = "0 8 * * 1-5"
		o.StopSpec = "0 18 * * 1-5"
	})
	require.NoError(t, err)

	s.Start()
	s.Stop()
}

func TestEmptySpecsAreNoOps(t *testing.T) {
	reg := room.New()
	defer reg.Close(context.Background())

	s, err := New(reg)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
