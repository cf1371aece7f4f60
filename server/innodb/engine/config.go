package engine

import (
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Config enumerates every knob open() needs: buffer pool capacity, the
// allocation policy's rows-per-page, the index's minimum degree, and
// the three filesystem paths a host may use for doublewrite, disk and
// index snapshots.
type Config struct {
	BufferPoolCapacity int    `ini:"buffer_pool_capacity"`
	RowsPerPage        int    `ini:"rows_per_page"`
	TreeMinDegree      int    `ini:"tree_min_degree"`
	DwbPath            string `ini:"dwb_path"`
	DiskSnapshotPath   string `ini:"disk_snapshot_path"`
	IndexSnapshotPath  string `ini:"index_snapshot_path"`
}

// LoadConfig reads an INI document with Config's field names into a
// Config value, the same gopkg.in/ini.v1 + MapTo shape
// server/conf/config.go's loadConfiguration uses. open() itself never
// touches the filesystem for configuration; LoadConfig is the one edge
// a host uses to avoid constructing the struct literal by hand.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	raw, err := ini.Load(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "engine: load config %s", path)
	}
	if err := raw.Section("").MapTo(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "engine: parse config %s", path)
	}
	return cfg, nil
}
