package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/politpatrick/icf-api/export"
)

func writeDataset(t *testing.T, flat bool) string {
	t.Helper()
	dir := t.TempDir()
	ds := &export.Dataset{
		Language: "en",
		Chapters: []export.ChapterEntry{
			{Code: "b", Title: "Body Functions"},
			{Code: "e", Title: "Environmental Factors"},
		},
		Categories: map[string][]export.CategoryEntry{
			"b": {{Code: "b1", Title: "Mental functions"}},
			"e": {{Code: "e1", Title: "Products and technology"}},
		},
		Entities: []export.Entity{
			{Code: "b1", Title: "Mental functions", Chapter: "b", Parent: "b", Children: []string{"b110"}, Qualifiers: []export.Qualifier{}},
			{Code: "b110", Title: "Consciousness functions", Chapter: "b", Parent: "b1", Children: []string{}, Qualifiers: []export.Qualifier{}},
			{Code: "e1", Title: "Products and technology", Chapter: "e", Parent: "e", Children: []string{}, Qualifiers: []export.Qualifier{}},
		},
		Flat: flat,
	}
	_, err := export.NewWriter(export.WriterOptions{}).Write(dir, ds)
	require.NoError(t, err)
	return dir
}

func backends(t *testing.T, dir string) map[string]Backend {
	t.Helper()
	srv := httptest.NewServer(http.StripPrefix("/data", http.FileServer(http.Dir(dir))))
	t.Cleanup(srv.Close)

	hb, err := NewHTTPBackend(srv.URL+"/data", srv.Client())
	require.NoError(t, err)
	return map[string]Backend{
		"dir":  NewDirBackend(dir),
		"http": hb,
	}
}

func TestStore_Reads(t *testing.T) {
	for _, flat := range []bool{false, true} {
		dir := writeDataset(t, flat)
		for name, b := range backends(t, dir) {
			t.Run(name, func(t *testing.T) {
				ctx := context.Background()
				s := NewStore(b)

				chapters, err := s.Chapters(ctx)
				require.NoError(t, err)
				require.Len(t, chapters, 2)
				assert.Equal(t, "b", chapters[0].Code)

				cf, err := s.Chapter(ctx, "e")
				require.NoError(t, err)
				assert.Equal(t, "e1", cf.Categories[0].Code)

				e, err := s.Entity(ctx, "b110")
				require.NoError(t, err)
				assert.Equal(t, "b1", e.Parent)

				all, err := s.Entities(ctx)
				require.NoError(t, err)
				var codes []string
				for _, e := range all {
					codes = append(codes, e.Code)
				}
				assert.Equal(t, []string{"b1", "b110", "e1"}, codes)

				index, err := s.Index(ctx)
				require.NoError(t, err)
				assert.Equal(t, "b110.json", index["b110"])
			})
		}
	}
}

func TestStore_NotFound(t *testing.T) {
	dir := writeDataset(t, false)
	for name, b := range backends(t, dir) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewStore(b)

			_, err := s.Entity(ctx, "b999")
			assert.True(t, errors.Is(err, ErrNotFound))

			_, err = s.Chapter(ctx, "x")
			assert.True(t, errors.Is(err, ErrNotFound))

			_, err = s.Entity(ctx, "b")
			assert.True(t, errors.Is(err, ErrNotFound))

			_, err = s.Entity(ctx, "../etc/passwd")
			assert.True(t, errors.Is(err, ErrInvalidCode))
		})
	}
}

func TestStore_Cache(t *testing.T) {
	dir := writeDataset(t, false)
	var hits atomic.Int32
	files := http.FileServer(http.Dir(dir))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		files.ServeHTTP(w, r)
	}))
	defer srv.Close()

	b, err := NewHTTPBackend(srv.URL, nil)
	require.NoError(t, err)
	s := NewStore(b)

	for i := 0; i < 3; i++ {
		_, err := s.Chapters(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPBackend_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewHTTPBackend(srv.URL, nil)
	require.NoError(t, err)

	_, err = b.Read(context.Background(), export.ChaptersFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.False(t, errors.Is(err, ErrNotFound))

	_, err = NewHTTPBackend("ftp://example.com", nil)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open("https://raw.example.com/icf/data")
	require.NoError(t, err)
	assert.Equal(t, "https://raw.example.com/icf/data/", s.Location())

	s, err = Open("/srv/icf")
	require.NoError(t, err)
	assert.Equal(t, "/srv/icf", s.Location())
}
