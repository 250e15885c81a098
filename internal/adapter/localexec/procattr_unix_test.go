//go:build unix

package localexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecReportsSignalDeath(t *testing.T) {
	sb := newSandbox(t)

	res, err := sb.Exec(context.Background(), "kill -KILL $$", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 137, res.ExitCode)

	res, err = sb.Exec(context.Background(), "kill -TERM $$", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 143, res.ExitCode)
}
