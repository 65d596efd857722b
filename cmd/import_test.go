package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placematch/internal/config"
	"github.com/sells-group/placematch/internal/model"
	"github.com/sells-group/placematch/internal/store"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		},
	}
}

func TestImportCmd_Metadata(t *testing.T) {
	assert.Equal(t, "import", importCmd.Use)
	assert.NotEmpty(t, importCmd.Short)

	fileFlag := importCmd.Flags().Lookup("file")
	require.NotNil(t, fileFlag)
}

func TestReadImportFile_Errors(t *testing.T) {
	_, err := readImportFile("")
	assert.ErrorContains(t, err, "--file is required")

	_, err = readImportFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read import file")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = readImportFile(bad)
	assert.ErrorContains(t, err, "parse import file")

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("[]"), 0644))
	_, err = readImportFile(empty)
	assert.ErrorContains(t, err, "no places")
}

func TestImportCmd_LoadsPlaces(t *testing.T) {
	cfg = sqliteConfig(t)

	file := filepath.Join(t.TempDir(), "places.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		{"name":"Roastery Café","location":"渋谷","lat":35.662,"lng":139.7,"tags":"cafe","authorRef":"seed"},
		{"name":"Bakery Hachi","location":"原宿","lat":35.670,"lng":139.705,"tags":"bakery","authorRef":"seed"}
	]`), 0644))

	importFilePath = file
	t.Cleanup(func() { importFilePath = "" })
	importCmd.SetContext(context.Background())

	require.NoError(t, importCmd.RunE(importCmd, nil))

	st, err := store.NewSQLite(cfg.Store.SQLitePath)
	require.NoError(t, err)
	defer st.Close()

	got, err := st.FindInBBox(context.Background(), model.BBoxAround(model.Coordinate{Lat: 35.666, Lng: 139.70}, 0.01))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMigrateCmd_SQLite(t *testing.T) {
	cfg = sqliteConfig(t)
	migrateCmd.SetContext(context.Background())

	require.NoError(t, migrateCmd.RunE(migrateCmd, nil))
	_, err := os.Stat(cfg.Store.SQLitePath)
	assert.NoError(t, err)
}

func TestMigrateCmd_UnknownDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mysql"}}
	migrateCmd.SetContext(context.Background())

	err := migrateCmd.RunE(migrateCmd, nil)
	assert.ErrorContains(t, err, "store.driver")
}

func TestManualCmd_SavesFavorite(t *testing.T) {
	cfg = sqliteConfig(t)
	manualName, manualAuthor = "喫茶トモ", "user-1"
	t.Cleanup(func() { manualName, manualAuthor = "", "" })

	var out bytes.Buffer
	manualCmd.SetOut(&out)
	manualCmd.SetContext(context.Background())
	t.Cleanup(func() { manualCmd.SetOut(nil) })

	require.NoError(t, manualCmd.RunE(manualCmd, nil))
	assert.Contains(t, out.String(), `"state": "PERSISTED"`)

	st, err := store.NewSQLite(cfg.Store.SQLitePath)
	require.NoError(t, err)
	defer st.Close()
	favs, err := st.ListFavorites(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "喫茶トモ", favs[0].Name)
}

func TestManualCmd_RequiresAuthor(t *testing.T) {
	cfg = sqliteConfig(t)
	manualName, manualAuthor = "x", ""
	t.Cleanup(func() { manualName = "" })

	err := manualCmd.RunE(manualCmd, nil)
	assert.ErrorContains(t, err, "--author is required")
}

func TestClassifyBioCmd(t *testing.T) {
	cfg = &config.Config{}
	var out bytes.Buffer
	classifyBioCmd.SetOut(&out)
	t.Cleanup(func() { classifyBioCmd.SetOut(nil) })

	require.NoError(t, classifyBioCmd.RunE(classifyBioCmd, []string{"東京都渋谷区", "03-1234-5678", "☕️"}))
	assert.Contains(t, out.String(), `"is_business": true`)
	assert.Contains(t, out.String(), `"location_hint": "渋谷"`)
}

func TestClassifyBioCmd_Empty(t *testing.T) {
	cfg = &config.Config{}
	err := classifyBioCmd.RunE(classifyBioCmd, nil)
	assert.ErrorContains(t, err, "bio text is required")
}

func TestResolveCmd_RequiresName(t *testing.T) {
	cfg = sqliteConfig(t)
	resolveName = ""
	err := resolveCmd.RunE(resolveCmd, nil)
	assert.ErrorContains(t, err, "--name is required")
}
