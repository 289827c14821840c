package library

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("v 0 0 0\n"), 0644))
}

func newLibrary(t *testing.T) *Library {
	t.Helper()
	return New(t.TempDir(), slog.Default())
}

func TestRebuild(t *testing.T) {
	lib := newLibrary(t)
	touch(t, filepath.Join(lib.Root(), "library", "router", "a.obj"))
	touch(t, filepath.Join(lib.Root(), "library", "laptop", "b.obj"))
	touch(t, filepath.Join(lib.Root(), "library", "laptop", "b.mtl"))

	var seen []string
	idx, err := lib.Rebuild(func(rel string) { seen = append(seen, rel) })
	require.NoError(t, err)

	want := Index{
		"router": {{File: "library/router/a.obj", Name: "a"}},
		"laptop": {{File: "library/laptop/b.obj", Name: "b"}},
	}
	assert.Equal(t, want, idx)
	assert.ElementsMatch(t, []string{"library/router/a.obj", "library/laptop/b.obj"}, seen)

	loaded, err := lib.Load()
	require.NoError(t, err)
	assert.Equal(t, want, loaded)
}

func TestRebuildReplacesIndex(t *testing.T) {
	lib := newLibrary(t)
	require.NoError(t, lib.Save(Index{"printer": {{File: "library/printer/old.obj"}}}))
	touch(t, filepath.Join(lib.Root(), "library", "Mouse", "m.obj"))

	idx, err := lib.Rebuild(nil)
	require.NoError(t, err)
	assert.Equal(t, Index{"mouse": {{File: "library/Mouse/m.obj", Name: "m"}}}, idx)
}

func TestRebuildWithoutLibraryDir(t *testing.T) {
	lib := newLibrary(t)

	idx, err := lib.Rebuild(nil)
	require.NoError(t, err)
	assert.Empty(t, idx)
	assert.FileExists(t, lib.IndexPath())
}

func TestLoadMissingIndexIsEmpty(t *testing.T) {
	idx, err := newLibrary(t).Load()
	require.NoError(t, err)
	assert.Empty(t, idx)
}

func TestLookup(t *testing.T) {
	lib := newLibrary(t)
	touch(t, filepath.Join(lib.Root(), "library", "laptop", "good.obj"))
	require.NoError(t, lib.Save(Index{
		"laptop": {
			{File: "library/laptop/missing.obj"},
			{File: "library/laptop/good.obj", Name: "good", License: "CC0"},
		},
		"router": {{File: "library/router/dangling.obj"}},
	}))

	rec, abs, ok := lib.Lookup("laptop")
	require.True(t, ok)
	assert.Equal(t, "good", rec.Name)
	assert.Equal(t, "CC0", rec.License)
	assert.Equal(t, filepath.Join(lib.Root(), "library", "laptop", "good.obj"), abs)

	_, _, ok = lib.Lookup("Notebook")
	assert.True(t, ok, "lookup normalizes the class")

	_, _, ok = lib.Lookup("router")
	assert.False(t, ok, "dangling record must not be returned")

	assert.False(t, lib.HasAsset("monitor"))
	assert.True(t, lib.HasAsset("laptop"))
}

func TestLookupInvalidIndex(t *testing.T) {
	lib := newLibrary(t)
	require.NoError(t, os.WriteFile(lib.IndexPath(), []byte("{not json"), 0644))

	_, _, ok := lib.Lookup("laptop")
	assert.False(t, ok)
}

func TestAdd(t *testing.T) {
	lib := newLibrary(t)
	src := filepath.Join(t.TempDir(), "router_x.obj")
	touch(t, src)

	rec, err := lib.Add("Router", src, Record{Name: "Router X", License: "CC-BY", Source: "example.org", Author: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "library/router/router_x.obj", rec.File)
	assert.FileExists(t, filepath.Join(lib.Root(), "library", "router", "router_x.obj"))

	other := filepath.Join(t.TempDir(), "second.obj")
	touch(t, other)
	_, err = lib.Add("router", other, Record{})
	require.NoError(t, err)

	idx, err := lib.Load()
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{File: "library/router/router_x.obj", Name: "Router X", License: "CC-BY", Source: "example.org", Author: "ana"},
		{File: "library/router/second.obj"},
	}, idx["router"])

	picked, _, ok := lib.Lookup("router")
	require.True(t, ok)
	assert.Equal(t, "Router X", picked.Name)
}

func TestAddFileAlreadyInPlace(t *testing.T) {
	lib := newLibrary(t)
	src := filepath.Join(lib.Root(), "library", "router", "in_place.obj")
	touch(t, src)

	rec, err := lib.Add("router", src, Record{})
	require.NoError(t, err)
	assert.Equal(t, "library/router/in_place.obj", rec.File)
}

func TestAddMissingSource(t *testing.T) {
	lib := newLibrary(t)
	_, err := lib.Add("router", filepath.Join(t.TempDir(), "nope.obj"), Record{})
	assert.Error(t, err)
	assert.NoFileExists(t, lib.IndexPath())
}
