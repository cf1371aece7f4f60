package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// pageJSON is the on-the-wire shape of one page in disk.json, per
// spec.md's Disk snapshot schema.
type pageJSON struct {
	PageID   int                      `json:"page_id"`
	Rows     map[string][]interface{} `json:"rows"`
	PageLSN  int                      `json:"page_lsn"`
	Dirty    bool                     `json:"dirty"`
	Pinned   bool                     `json:"pinned"`
	PinCount int                      `json:"pin_count"`
}

// DumpToJSON renders the disk.json schema: a map from stringified
// page-id to the page's rows, lsn, dirty flag and pin bookkeeping.
func (d *Disk) DumpToJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]pageJSON, len(d.pages))
	for id, p := range d.pages {
		rows := make(map[string][]interface{}, len(p.Rows))
		for rowID, row := range p.Rows {
			rows[strconv.Itoa(rowID)] = encodeRow(row)
		}
		out[strconv.Itoa(id)] = pageJSON{
			PageID:   p.PageID,
			Rows:     rows,
			PageLSN:  p.PageLSN,
			Dirty:    p.Dirty,
			Pinned:   p.PinCount > 0,
			PinCount: p.PinCount,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, jsonError("disk.dump_to_json", err)
	}
	return data, nil
}

// LoadFromJSON replaces the Disk's contents with the pages encoded in
// data, reproducing each page's row map bit-for-bit relative to what
// was dumped.
func (d *Disk) LoadFromJSON(data []byte) error {
	var raw map[string]struct {
		PageID   int                      `json:"page_id"`
		Rows     map[string][]interface{} `json:"rows"`
		PageLSN  int                      `json:"page_lsn"`
		Dirty    bool                     `json:"dirty"`
		PinCount int                      `json:"pin_count"`
	}
	if err := decodeJSONNumbers(data, &raw); err != nil {
		return jsonError("disk.load_from_json", err)
	}

	pages := make(map[int]*Page, len(raw))
	for key, pj := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return jsonError("disk.load_from_json", fmt.Errorf("bad page key %q: %w", key, err))
		}
		p := &Page{
			PageID:   pj.PageID,
			PageLSN:  pj.PageLSN,
			Dirty:    pj.Dirty,
			PinCount: pj.PinCount,
			Rows:     make(map[int]Row, len(pj.Rows)),
		}
		for rowKey, rawRow := range pj.Rows {
			rowID, err := strconv.Atoi(rowKey)
			if err != nil {
				return jsonError("disk.load_from_json", fmt.Errorf("bad row key %q: %w", rowKey, err))
			}
			row, err := decodeRow(rawRow)
			if err != nil {
				return jsonError("disk.load_from_json", err)
			}
			p.Rows[rowID] = row
		}
		pages[id] = p
	}

	d.mu.Lock()
	d.pages = pages
	d.mu.Unlock()
	return nil
}
