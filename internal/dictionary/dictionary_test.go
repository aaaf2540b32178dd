package dictionary

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadnorm/internal/logging"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return &Store{
		Path:       filepath.Join(dir, "diccionario_normalizaciones.json"),
		BackupDir:  filepath.Join(dir, "backups"),
		MaxBackups: 3,
		Log:        logging.Discard(),
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := testStore(t)
	d := s.Load()
	for _, cat := range []Category{Institutions, Grades, URLs, Forms} {
		assert.Equal(t, 0, d.Len(cat))
	}
}

func TestLoadCorruptFile(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.WriteFile(s.Path, []byte("{not json"), 0o644))

	d := s.Load()
	assert.Equal(t, 0, d.Len(Institutions))
}

func TestLoadBackfillsMissingCategories(t *testing.T) {
	s := testStore(t)
	old := `{"colegios": {"USAC": "Universidad de San Carlos de Guatemala (USAC)"}, "grados": {}}`
	require.NoError(t, os.WriteFile(s.Path, []byte(old), 0o644))

	d := s.Load()
	got, ok := d.Get(Institutions, "USAC")
	require.True(t, ok)
	assert.Equal(t, "Universidad de San Carlos de Guatemala (USAC)", got)

	// urls/formularios were absent from the file; Put must not panic.
	d.Put(URLs, "https://uvgbridge.gt/lic-marketing", "International Marketing and Business Analytics")
	assert.Equal(t, 1, d.Len(URLs))
}

func TestSaveRoundTrip(t *testing.T) {
	s := testStore(t)
	d := New()
	d.Put(Institutions, "usac", "Universidad de San Carlos de Guatemala (USAC)")
	d.Put(Grades, "tercero básico", "3ro. Básico")
	require.NoError(t, s.Save(d))

	reloaded := s.Load()
	got, ok := reloaded.Get(Grades, "tercero básico")
	require.True(t, ok)
	assert.Equal(t, "3ro. Básico", got)
}

func TestSaveFileHasFourTables(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save(New()))

	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"colegios", "grados", "urls", "formularios"} {
		assert.Contains(t, raw, key)
	}
}

func TestPutOverwrites(t *testing.T) {
	d := New()
	d.Put(Forms, "form lic marketing", "Otro")
	d.Put(Forms, "form lic marketing", "International Marketing and Business Analytics")

	got, _ := d.Get(Forms, "form lic marketing")
	assert.Equal(t, "International Marketing and Business Analytics", got)
	assert.Equal(t, 1, d.Len(Forms))
}

func TestSaveCreatesBackupOfPreviousVersion(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save(New())) // first write: no prior file, no backup

	entries, _ := os.ReadDir(s.BackupDir)
	assert.Len(t, entries, 0)

	require.NoError(t, s.Save(New()))
	entries, err := os.ReadDir(s.BackupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), backupPrefix)
}

func TestPruneKeepsNewestBackups(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.MkdirAll(s.BackupDir, 0o755))

	stamps := []string{
		"20250101_000000", "20250201_000000", "20250301_000000",
		"20250401_000000", "20250501_000000",
	}
	for _, stamp := range stamps {
		name := backupPrefix + stamp + ".json"
		require.NoError(t, os.WriteFile(filepath.Join(s.BackupDir, name), []byte("{}"), 0o644))
	}

	s.pruneBackups()

	entries, err := os.ReadDir(s.BackupDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.NotContains(t, names, backupPrefix+"20250101_000000.json")
	assert.NotContains(t, names, backupPrefix+"20250201_000000.json")
	assert.Contains(t, names, backupPrefix+"20250501_000000.json")
}

func TestBackupNamesSortChronologically(t *testing.T) {
	// Name format sanity: the embedded stamp must sort the same as time.
	earlier := time.Date(2025, 3, 9, 23, 59, 59, 0, time.UTC).Format("20060102_150405")
	later := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC).Format("20060102_150405")
	assert.Less(t, earlier, later)
}
