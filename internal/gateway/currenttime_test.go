package gateway

import (
	"context"
	"testing"

	"ibkr_gateway/internal/core"
	apperrors "ibkr_gateway/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentTime(t *testing.T) {
	client, fake := newConnectedClient(t)
	fake.OnCommand(core.OpReqCurrentTime, func(core.Command) []core.Event {
		return []core.Event{core.CurrentTimeEvent{Epoch: 1700000000}}
	})

	got, err := client.CurrentTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got.Unix())
}

func TestCurrentTime_Timeout(t *testing.T) {
	client, _ := newConnectedClient(t)

	_, err := client.CurrentTime(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrCurrentTimeTimeout)
}
