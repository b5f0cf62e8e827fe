package sqlite

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"go.viam.com/test"

	"potholewatch/internal/repository"
)

func setupTestDB(t *testing.T) (*KeyValueRepository, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "data", "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	repo := NewKeyValueRepository(db)
	t.Cleanup(func() { repo.Close() })
	return repo, dbPath
}

func TestDatabase_Connection(t *testing.T) {
	_, dbPath := setupTestDB(t)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestKeyValue_GetPut(t *testing.T) {
	repo, _ := setupTestDB(t)

	_, ok, err := repo.Get("missing")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, repo.Put("theme-preference", "dark"), test.ShouldBeNil)
	test.That(t, repo.Put("theme-preference", "light"), test.ShouldBeNil)

	v, ok, err := repo.Get("theme-preference")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, "light")
}

func TestKeyValue_KeysAndDelete(t *testing.T) {
	repo, _ := setupTestDB(t)

	test.That(t, repo.Put("b", "2"), test.ShouldBeNil)
	test.That(t, repo.Put("a", "1"), test.ShouldBeNil)

	keys, err := repo.Keys()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, keys, test.ShouldResemble, []string{"a", "b"})

	test.That(t, repo.Delete("a"), test.ShouldBeNil)
	test.That(t, repo.Delete("a"), test.ShouldBeNil)
	keys, err = repo.Keys()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, keys, test.ShouldResemble, []string{"b"})
}

func TestKeyValue_UpdateAbortKeepsValue(t *testing.T) {
	repo, _ := setupTestDB(t)
	test.That(t, repo.Put("k", "before"), test.ShouldBeNil)

	boom := errors.New("boom")
	err := repo.Update("k", func(current string, ok bool) (string, error) {
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, current, test.ShouldEqual, "before")
		return "", boom
	})
	test.That(t, errors.Is(err, boom), test.ShouldBeTrue)

	v, _, err := repo.Get("k")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, "before")
}

func TestKeyValue_ConcurrentUpdates(t *testing.T) {
	repo, _ := setupTestDB(t)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Update("counter", func(current string, ok bool) (string, error) {
				n := 0
				if ok {
					n, _ = strconv.Atoi(current)
				}
				return strconv.Itoa(n + 1), nil
			})
			test.That(t, err, test.ShouldBeNil)
		}()
	}
	wg.Wait()

	v, _, err := repo.Get("counter")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, "25")
}

func TestKeyValue_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	db, err := New(dbPath)
	test.That(t, err, test.ShouldBeNil)
	repo := NewKeyValueRepository(db)
	test.That(t, repo.Put(repository.ReportsKey, "[]"), test.ShouldBeNil)
	test.That(t, repo.Close(), test.ShouldBeNil)

	db, err = New(dbPath)
	test.That(t, err, test.ShouldBeNil)
	repo = NewKeyValueRepository(db)
	defer repo.Close()

	v, ok, err := repo.Get(repository.ReportsKey)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, "[]")
}
