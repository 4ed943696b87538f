package orchestration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftdata/shardsql/internal/rule"
)

const oneShard = `
shardingRule:
  defaultDataSourceName: ds_0
  tables:
    t_order:
      actualDataNodes: ds_0.t_order_0
`

const twoShards = `
shardingRule:
  defaultDataSourceName: ds_0
  tables:
    t_order:
      actualDataNodes: ds_${0..1}.t_order_0
`

func writeRules(t *testing.T, path, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
}

func TestFileCenterLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeRules(t, path, oneShard)

	rs, err := NewFileCenter(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, rs.DataNodes("t_order"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileCenter(path).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistryRulesBeforeLoad(t *testing.T) {
	_, err := NewRegistry(nil).Rules()
	assert.ErrorIs(t, err, ErrNoRules)
}

func TestStaticRegistry(t *testing.T) {
	rs, err := rule.Parse([]byte(oneShard))
	require.NoError(t, err)

	reg := NewStaticRegistry(rs)
	got, err := reg.Rules()
	require.NoError(t, err)
	assert.Same(t, rs, got)
	assert.Equal(t, uint64(1), reg.Version())
	assert.NoError(t, reg.Refresh(context.Background()))
}

func TestRegistryFollowsFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeRules(t, path, oneShard)

	reg := NewRegistry(NewFileCenter(path, WithDebounce(20*time.Millisecond)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.Eventually(t, func() bool { return reg.Version() >= 1 }, 2*time.Second, 10*time.Millisecond)
	rs, err := reg.Rules()
	require.NoError(t, err)
	require.Len(t, rs.DataNodes("t_order"), 1)

	// An invalid document leaves the last good rules active.
	writeRules(t, path, "shardingRule: [")
	time.Sleep(100 * time.Millisecond)
	rs, err = reg.Rules()
	require.NoError(t, err)
	assert.Len(t, rs.DataNodes("t_order"), 1)

	require.Eventually(t, func() bool {
		writeRules(t, path, twoShards)
		rs, err := reg.Rules()
		return err == nil && len(rs.DataNodes("t_order")) == 2
	}, 3*time.Second, 50*time.Millisecond)
}
