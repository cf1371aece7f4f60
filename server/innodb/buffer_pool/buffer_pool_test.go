package buffer_pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/innodb-core/server/innodb/errs"
	"github.com/zhukovaskychina/innodb-core/server/innodb/storage"
)

func newTestPool(capacity int) (*BufferPool, *storage.Disk, *storage.DoublewriteBuffer) {
	disk := storage.NewDisk()
	dwb := storage.NewDoublewriteBuffer()
	return New(capacity, disk, dwb), disk, dwb
}

func TestLoadPageMissThenHit(t *testing.T) {
	bp, disk, _ := newTestPool(4)
	disk.WritePage(storage.NewPage(1))

	_, err := bp.LoadPage(1)
	require.NoError(t, err)
	assert.Equal(t, 1, bp.PinCount(1))

	_, err = bp.LoadPage(1)
	require.NoError(t, err)
	assert.Equal(t, 2, bp.PinCount(1))

	stats := bp.Stats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestReleaseBalancesPinCount(t *testing.T) {
	bp, disk, _ := newTestPool(4)
	disk.WritePage(storage.NewPage(1))

	_, err := bp.LoadPage(1)
	require.NoError(t, err)
	require.NoError(t, bp.ReleasePage(1))
	assert.Equal(t, 0, bp.PinCount(1))
}

func TestReleaseUnbalancedFails(t *testing.T) {
	bp, disk, _ := newTestPool(4)
	disk.WritePage(storage.NewPage(1))
	_, err := bp.LoadPage(1)
	require.NoError(t, err)
	require.NoError(t, bp.ReleasePage(1))

	err = bp.ReleasePage(1)
	require.Error(t, err)
	assert.True(t, errs.IsUnbalancedPin(err))
}

func TestReleaseNotInPoolFails(t *testing.T) {
	bp, _, _ := newTestPool(4)
	err := bp.ReleasePage(42)
	require.Error(t, err)
	assert.True(t, errs.IsNotInPool(err))
}

func TestCapacityNeverExceeded(t *testing.T) {
	bp, disk, _ := newTestPool(2)
	for id := 1; id <= 5; id++ {
		disk.WritePage(storage.NewPage(id))
		_, err := bp.LoadPage(id)
		require.NoError(t, err)
		require.NoError(t, bp.ReleasePage(id))
		assert.LessOrEqual(t, bp.Len(), 2)
	}
}

func TestEvictionFailsWhenAllPinned(t *testing.T) {
	bp, disk, _ := newTestPool(1)
	disk.WritePage(storage.NewPage(1))
	disk.WritePage(storage.NewPage(2))

	_, err := bp.LoadPage(1) // pinned, never released
	require.NoError(t, err)

	_, err = bp.LoadPage(2)
	require.Error(t, err)
	assert.True(t, errs.IsAllPinned(err))
	assert.Equal(t, 1, bp.Len())
	assert.Equal(t, -1, bp.PinCount(2))
}

// Scenario 1 (spec.md §8): capacity-1 pool, two distinct pages
// sequentially loaded with an intermediate release — the second load
// evicts the first through the doublewrite protocol, and the
// sequential area holds the first page's image between flush and clear.
func TestScenarioCapacityOneEvictionGoesThroughDoublewrite(t *testing.T) {
	bp, disk, dwb := newTestPool(1)
	disk.WritePage(storage.NewPage(1))
	disk.WritePage(storage.NewPage(2))

	_, err := bp.LoadPage(1)
	require.NoError(t, err)
	require.NoError(t, bp.MarkDirty(1))
	require.NoError(t, bp.ReleasePage(1))

	_, err = bp.LoadPage(2)
	require.NoError(t, err)

	assert.Equal(t, 1, bp.Len())
	assert.Equal(t, -1, bp.PinCount(1))
	assert.Equal(t, 1, bp.PinCount(2))

	// The write-back clears staging as its last step; the sequential
	// area (the crash-recovery copy) is retained.
	assert.Equal(t, 0, dwb.StagingSize())
	assert.NotNil(t, dwb.Recover(1))

	stored, err := disk.GetPage(1)
	require.NoError(t, err)
	assert.False(t, stored.Dirty)
}

func TestFlushDirtyOrderingAndClear(t *testing.T) {
	bp, disk, dwb := newTestPool(4)
	disk.WritePage(storage.NewPage(1))

	_, err := bp.LoadPage(1)
	require.NoError(t, err)
	require.NoError(t, bp.MutatePage(1, func(p *storage.Page) {
		p.Rows[1] = storage.Row{1, "Alice"}
	}))

	bp.FlushDirty()

	assert.Equal(t, 0, dwb.StagingSize())
	stored, err := disk.GetPage(1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.Rows[1][1])
	assert.False(t, stored.Dirty)

	// Pin count is untouched by a checkpoint.
	assert.Equal(t, 1, bp.PinCount(1))
}

func TestMutatePageMarksDirty(t *testing.T) {
	bp, disk, _ := newTestPool(4)
	disk.WritePage(storage.NewPage(1))
	_, err := bp.LoadPage(1)
	require.NoError(t, err)

	require.NoError(t, bp.MutatePage(1, func(p *storage.Page) {
		p.Rows[5] = storage.Row{5, "Carol"}
	}))

	bp.FlushDirty()
	stored, err := disk.GetPage(1)
	require.NoError(t, err)
	assert.Equal(t, "Carol", stored.Rows[5][1])
}
