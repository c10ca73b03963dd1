// cmd/stockwatch/keywords.go
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// KeywordStore persists watch-words in a flat file, one per line.
type KeywordStore struct {
	path  string
	mutex sync.Mutex
}

// NewKeywordStore creates a store backed by path. The file is created on the
// first write.
func NewKeywordStore(path string) *KeywordStore {
	return &KeywordStore{path: path}
}

// Path returns the backing file.
func (ks *KeywordStore) Path() string {
	return ks.path
}

// Load reads the keyword list. A missing file is an empty list.
func (ks *KeywordStore) Load() ([]string, error) {
	ks.mutex.Lock()
	defer ks.mutex.Unlock()
	return ks.load()
}

// Add appends word unless it is already present. It reports whether the list
// changed.
func (ks *KeywordStore) Add(word string) (bool, error) {
	word = normalizeKeyword(word)
	if word == "" {
		return false, fmt.Errorf("keyword must not be empty")
	}
	if strings.ContainsAny(word, "\r\n") {
		return false, fmt.Errorf("keyword must fit on one line")
	}

	ks.mutex.Lock()
	defer ks.mutex.Unlock()

	words, err := ks.load()
	if err != nil {
		return false, err
	}
	for _, w := range words {
		if w == word {
			return false, nil
		}
	}
	return true, ks.save(append(words, word))
}

// Remove deletes word if present. It reports whether the list changed.
func (ks *KeywordStore) Remove(word string) (bool, error) {
	word = normalizeKeyword(word)

	ks.mutex.Lock()
	defer ks.mutex.Unlock()

	words, err := ks.load()
	if err != nil {
		return false, err
	}

	kept := words[:0]
	removed := false
	for _, w := range words {
		if w == word {
			removed = true
			continue
		}
		kept = append(kept, w)
	}
	if !removed {
		return false, nil
	}
	return true, ks.save(kept)
}

func (ks *KeywordStore) load() ([]string, error) {
	file, err := os.Open(ks.path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrPersistence, ks.path, err)
	}
	defer file.Close()

	words := []string{}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, ks.path, err)
	}
	return words, nil
}

func (ks *KeywordStore) save(words []string) error {
	dir := filepath.Dir(ks.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".keywords-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, word := range words {
		w.WriteString(word)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, ks.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, ks.path, err)
	}
	if err := os.Rename(tmp.Name(), ks.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrPersistence, ks.path, err)
	}
	return nil
}

func normalizeKeyword(word string) string {
	return norm.NFC.String(strings.TrimSpace(word))
}
