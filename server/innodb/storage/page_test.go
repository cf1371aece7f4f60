package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageCloneIsIndependent(t *testing.T) {
	p := NewPage(1)
	p.Rows[1] = Row{1, "Alice", 30}
	p.PageLSN = 5

	clone := p.Clone()
	clone.Rows[1][1] = "Mutated"
	clone.PageLSN = 99

	require.Equal(t, "Alice", p.Rows[1][1])
	assert.Equal(t, 5, p.PageLSN)
}

func TestPageChecksumStableAcrossClone(t *testing.T) {
	p := NewPage(2)
	p.Rows[1] = Row{1, "Alice", 30}
	p.PageLSN = 3

	assert.Equal(t, p.Checksum(), p.Clone().Checksum())
}

func TestPageChecksumChangesWithContent(t *testing.T) {
	p := NewPage(2)
	p.Rows[1] = Row{1, "Alice", 30}
	before := p.Checksum()
	p.Rows[1] = Row{1, "Alice", 31}
	assert.NotEqual(t, before, p.Checksum())
}

func TestRowIDsSortedIsAscending(t *testing.T) {
	p := NewPage(1)
	p.Rows[3] = Row{3, "c"}
	p.Rows[1] = Row{1, "a"}
	p.Rows[2] = Row{2, "b"}
	assert.Equal(t, []int{1, 2, 3}, p.RowIDsSorted())
}
