// Package dictionary implements the persistent classification dictionary: a
// four-category raw→normalized store that accumulates resolved classifications
// across runs. The on-disk format is a single JSON document with the four
// top-level tables; a missing or unreadable file always degrades to empty
// tables.
package dictionary

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"leadnorm/internal/logging"
)

// Category names one of the four classification tables. The values double as
// the JSON keys of the persisted file.
type Category string

const (
	Institutions Category = "colegios"
	Grades       Category = "grados"
	URLs         Category = "urls"
	Forms        Category = "formularios"
)

const backupPrefix = "diccionario_backup_"

// Dictionary holds the four in-memory classification tables. Keys are raw
// input strings, case-preserved as first seen; values are normalized outputs.
// It is owned by the batch orchestrator and must not be shared across
// goroutines.
type Dictionary struct {
	tables map[Category]map[string]string
}

// New returns a Dictionary with four empty tables.
func New() *Dictionary {
	return &Dictionary{tables: map[Category]map[string]string{
		Institutions: {},
		Grades:       {},
		URLs:         {},
		Forms:        {},
	}}
}

// Get returns the stored classification for raw, if any.
func (d *Dictionary) Get(cat Category, raw string) (string, bool) {
	v, ok := d.tables[cat][raw]
	return v, ok
}

// Put stores a classification. Re-classifying an existing key overwrites it:
// last write wins.
func (d *Dictionary) Put(cat Category, raw, normalized string) {
	d.tables[cat][raw] = normalized
}

// Len reports the number of entries in one table.
func (d *Dictionary) Len(cat Category) int {
	return len(d.tables[cat])
}

// Keys returns the raw keys of one table in unspecified order.
func (d *Dictionary) Keys(cat Category) []string {
	keys := make([]string, 0, len(d.tables[cat]))
	for k := range d.tables[cat] {
		keys = append(keys, k)
	}
	return keys
}

type fileFormat struct {
	Colegios    map[string]string `json:"colegios"`
	Grados      map[string]string `json:"grados"`
	URLs        map[string]string `json:"urls"`
	Formularios map[string]string `json:"formularios"`
}

// Store handles durable persistence of a Dictionary with rolling backups.
type Store struct {
	Path       string
	BackupDir  string
	MaxBackups int
	Log        *logging.RunLog
}

// Load reads the dictionary file. A missing, unreadable or malformed file is
// recovered locally as four empty tables; startup never fails on dictionary
// state. Categories absent from an older file are backfilled empty.
func (s *Store) Load() *Dictionary {
	d := New()

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return d
	}
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		s.Log.Logf("warning: dictionary file unreadable, starting empty: %v", err)
		return d
	}
	for raw, v := range ff.Colegios {
		d.tables[Institutions][raw] = v
	}
	for raw, v := range ff.Grados {
		d.tables[Grades][raw] = v
	}
	for raw, v := range ff.URLs {
		d.tables[URLs][raw] = v
	}
	for raw, v := range ff.Formularios {
		d.tables[Forms][raw] = v
	}
	return d
}

// Save persists the dictionary. If a previous version exists on disk it is
// copied to a timestamped backup first and the backup set is pruned to the
// newest MaxBackups. The write itself goes through a temp file and rename.
func (s *Store) Save(d *Dictionary) error {
	if _, err := os.Stat(s.Path); err == nil {
		if err := s.backup(); err != nil {
			s.Log.Logf("warning: dictionary backup failed: %v", err)
		}
		s.pruneBackups()
	}

	ff := fileFormat{
		Colegios:    d.tables[Institutions],
		Grados:      d.tables[Grades],
		URLs:        d.tables[URLs],
		Formularios: d.tables[Forms],
	}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dictionary: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("replace dictionary: %w", err)
	}

	s.Log.Logf("Diccionario guardado: %d colegios, %d grados, %d URLs, %d formularios",
		d.Len(Institutions), d.Len(Grades), d.Len(URLs), d.Len(Forms))
	return nil
}

func (s *Store) backup() error {
	if err := os.MkdirAll(s.BackupDir, 0o755); err != nil {
		return err
	}
	stamp := time.Now().Format("20060102_150405")
	name := backupPrefix + stamp + ".json"
	dst := filepath.Join(s.BackupDir, name)

	src, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	s.Log.Logf("Backup creado: %s", name)
	return nil
}

// pruneBackups keeps only the newest MaxBackups backup files. Names embed
// YYYYMMDD_HHMMSS, so reverse lexicographic order approximates reverse
// chronological order.
func (s *Store) pruneBackups() {
	max := s.MaxBackups
	if max <= 0 {
		max = 10
	}
	entries, err := os.ReadDir(s.BackupDir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names[min(len(names), max):] {
		if err := os.Remove(filepath.Join(s.BackupDir, name)); err == nil {
			s.Log.Logf("Backup antiguo eliminado: %s", name)
		}
	}
}
