package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeywordStore(t *testing.T) *KeywordStore {
	t.Helper()
	return NewKeywordStore(filepath.Join(t.TempDir(), "keywords.txt"))
}

func TestKeywordStoreMissingFileIsEmpty(t *testing.T) {
	ks := newTestKeywordStore(t)

	words, err := ks.Load()
	require.NoError(t, err)
	require.Empty(t, words)

	_, err = os.Stat(ks.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist), "loading must not create the file")
}

func TestKeywordStoreAddAndRemove(t *testing.T) {
	ks := newTestKeywordStore(t)

	added, err := ks.Add("Carrot")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = ks.Add("  Carrot ")
	require.NoError(t, err)
	assert.False(t, added, "the same word must not be stored twice")

	added, err = ks.Add("Blue Egg")
	require.NoError(t, err)
	assert.True(t, added)

	words, err := ks.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Carrot", "Blue Egg"}, words)

	data, err := os.ReadFile(ks.Path())
	require.NoError(t, err)
	assert.Equal(t, "Carrot\nBlue Egg\n", string(data))

	removed, err := ks.Remove("Carrot")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = ks.Remove("Carrot")
	require.NoError(t, err)
	assert.False(t, removed)

	words, err = ks.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue Egg"}, words)
}

func TestKeywordStoreRejectsBadWords(t *testing.T) {
	ks := newTestKeywordStore(t)

	_, err := ks.Add("   ")
	assert.EqualError(t, err, "keyword must not be empty")

	_, err = ks.Add("one\ntwo")
	assert.EqualError(t, err, "keyword must fit on one line")

	words, err := ks.Load()
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestKeywordStoreLoadSkipsBlanksAndDuplicates(t *testing.T) {
	ks := newTestKeywordStore(t)
	require.NoError(t, os.WriteFile(ks.Path(), []byte("egg\n\n  Carrot  \negg\r\n"), 0644))

	words, err := ks.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"egg", "Carrot"}, words)
}

func TestKeywordStoreConcurrentAdds(t *testing.T) {
	ks := newTestKeywordStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ks.Add(fmt.Sprintf("word-%02d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	words, err := ks.Load()
	require.NoError(t, err)
	assert.Len(t, words, 20)
}

func TestKeywordStoreReadErrorIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	ks := NewKeywordStore(dir)

	_, err := ks.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
}
