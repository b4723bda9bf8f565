package output

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/marmos91/gfs/internal/bytesize"
	"github.com/marmos91/gfs/internal/cli/timeutil"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

// EntryRow is one line of a listing. Dir is set for implicit directories,
// which carry no metadata.
type EntryRow struct {
	Name        string     `json:"name" yaml:"name"`
	Path        string     `json:"path" yaml:"path"`
	Dir         bool       `json:"dir" yaml:"dir"`
	Size        int64      `json:"size" yaml:"size"`
	Mode        string     `json:"mode,omitempty" yaml:"mode,omitempty"`
	UID         uint32     `json:"uid" yaml:"uid"`
	GID         uint32     `json:"gid" yaml:"gid"`
	ModTime     *time.Time `json:"mtime,omitempty" yaml:"mtime,omitempty"`
	ContentType string     `json:"content_type,omitempty" yaml:"content_type,omitempty"`
}

// NewEntryRow describes the entry at p.
func NewEntryRow(p gfs.OwnedPath[attr.Attr], e gfs.Entry[attr.Attr]) EntryRow {
	row := EntryRow{
		Name:        p.Base(),
		Path:        p.Path(),
		Size:        e.Size(),
		Mode:        e.Metadata.FileMode().String(),
		UID:         e.Metadata.UID,
		GID:         e.Metadata.GID,
		ContentType: e.Metadata.ContentType,
	}
	if t := e.Metadata.Time(); !t.IsZero() {
		row.ModTime = &t
	}
	return row
}

// NewDirRow describes an implicit directory.
func NewDirRow(p gfs.OwnedPath[attr.Attr]) EntryRow {
	return EntryRow{Name: p.Base() + "/", Path: p.Path(), Dir: true}
}

// EntryList renders a listing. Long selects the `ls -l` layout.
type EntryList struct {
	Entries []EntryRow
	Long    bool
	Now     time.Time
}

func (l EntryList) Headers() []string {
	if !l.Long {
		return []string{"Name"}
	}
	return []string{"Mode", "UID", "GID", "Size", "Modified", "Name"}
}

func (l EntryList) Rows() [][]string {
	now := l.Now
	if now.IsZero() {
		now = time.Now()
	}
	rows := make([][]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		if !l.Long {
			rows = append(rows, []string{e.Name})
			continue
		}
		if e.Dir {
			rows = append(rows, []string{"d---------", "-", "-", "-", "-", e.Name})
			continue
		}
		var mtime time.Time
		if e.ModTime != nil {
			mtime = *e.ModTime
		}
		rows = append(rows, []string{
			e.Mode,
			strconv.FormatUint(uint64(e.UID), 10),
			strconv.FormatUint(uint64(e.GID), 10),
			bytesize.ByteSize(e.Size).String(),
			timeutil.FormatModTime(mtime, now),
			e.Name,
		})
	}
	return rows
}

// MarshalJSON encodes the bare entry slice.
func (l EntryList) MarshalJSON() ([]byte, error) {
	if l.Entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Entries)
}

// MarshalYAML encodes the bare entry slice.
func (l EntryList) MarshalYAML() (any, error) {
	if l.Entries == nil {
		return []EntryRow{}, nil
	}
	return l.Entries, nil
}

// StatPairs returns the key/value view printed by `gfs stat`.
func StatPairs(mount string, row EntryRow) [][2]string {
	var mtime time.Time
	if row.ModTime != nil {
		mtime = *row.ModTime
	}
	ct := row.ContentType
	if ct == "" {
		ct = "-"
	}
	return [][2]string{
		{"Mount", mount},
		{"Path", row.Path},
		{"Size", strconv.FormatInt(row.Size, 10)},
		{"Mode", row.Mode},
		{"Owner", strconv.FormatUint(uint64(row.UID), 10) + ":" + strconv.FormatUint(uint64(row.GID), 10)},
		{"Modified", timeutil.FormatTime(mtime)},
		{"Content-Type", ct},
	}
}
