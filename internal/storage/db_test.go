package storage

import (
	"bytes"
	"errors"
	"testing"
)

// testDB runs the shared conformance suite against a DB implementation.
func testDB(t *testing.T, db DB) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		if err := db.Put([]byte("key1"), []byte("value1")); err != nil {
			t.Fatalf("Put() error: %v", err)
		}
		val, err := db.Get([]byte("key1"))
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if !bytes.Equal(val, []byte("value1")) {
			t.Errorf("Get() = %q, want %q", val, "value1")
		}
	})

	t.Run("GetMissingIsErrNotFound", func(t *testing.T) {
		_, err := db.Get([]byte("nonexistent"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() missing key error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Has", func(t *testing.T) {
		db.Put([]byte("exists"), []byte("yes"))

		ok, err := db.Has([]byte("exists"))
		if err != nil || !ok {
			t.Errorf("Has(exists) = %v, %v; want true, nil", ok, err)
		}
		ok, err = db.Has([]byte("missing"))
		if err != nil || ok {
			t.Errorf("Has(missing) = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("OverwriteAndDelete", func(t *testing.T) {
		db.Put([]byte("ow"), []byte("first"))
		db.Put([]byte("ow"), []byte("second"))
		val, _ := db.Get([]byte("ow"))
		if !bytes.Equal(val, []byte("second")) {
			t.Errorf("Get() after overwrite = %q, want %q", val, "second")
		}
		if err := db.Delete([]byte("ow")); err != nil {
			t.Fatalf("Delete() error: %v", err)
		}
		if ok, _ := db.Has([]byte("ow")); ok {
			t.Error("key should be gone after Delete()")
		}
		if err := db.Delete([]byte("never-existed")); err != nil {
			t.Errorf("Delete() nonexistent key error: %v", err)
		}
	})

	t.Run("EmptyValue", func(t *testing.T) {
		if err := db.Put([]byte("empty"), []byte{}); err != nil {
			t.Fatalf("Put() empty value error: %v", err)
		}
		val, err := db.Get([]byte("empty"))
		if err != nil {
			t.Fatalf("Get() empty value error: %v", err)
		}
		if len(val) != 0 {
			t.Errorf("expected empty value, got %d bytes", len(val))
		}
	})

	t.Run("ForEachOrdered", func(t *testing.T) {
		db.Put([]byte("seq/\x00\x03"), []byte("3"))
		db.Put([]byte("seq/\x00\x01"), []byte("1"))
		db.Put([]byte("seq/\x00\x02"), []byte("2"))
		db.Put([]byte("other/x"), []byte("4"))

		var got []string
		err := db.ForEach([]byte("seq/"), func(key, value []byte) error {
			got = append(got, string(value))
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach() error: %v", err)
		}
		if len(got) != 3 || got[0] != "1" || got[1] != "2" || got[2] != "3" {
			t.Errorf("ForEach(seq/) = %v, want [1 2 3]", got)
		}
	})

	t.Run("ForEachStopsOnError", func(t *testing.T) {
		stop := errors.New("stop")
		var count int
		err := db.ForEach([]byte("seq/"), func(key, value []byte) error {
			count++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("ForEach() error = %v, want stop", err)
		}
		if count != 1 {
			t.Errorf("callback ran %d times, want 1", count)
		}
	})

	t.Run("BatchCommit", func(t *testing.T) {
		db.Put([]byte("b/old"), []byte("x"))

		batch := NewBatch(db)
		batch.Put([]byte("b/1"), []byte("one"))
		batch.Put([]byte("b/2"), []byte("two"))
		batch.Delete([]byte("b/old"))

		if ok, _ := db.Has([]byte("b/1")); ok {
			t.Fatal("batch write visible before Commit()")
		}
		if err := batch.Commit(); err != nil {
			t.Fatalf("Commit() error: %v", err)
		}
		for _, k := range []string{"b/1", "b/2"} {
			if ok, _ := db.Has([]byte(k)); !ok {
				t.Errorf("%s missing after Commit()", k)
			}
		}
		if ok, _ := db.Has([]byte("b/old")); ok {
			t.Error("b/old should be deleted by batch")
		}
	})

	t.Run("BatchDiscard", func(t *testing.T) {
		batch := NewBatch(db)
		batch.Put([]byte("discarded"), []byte("v"))
		batch.Discard()
		if ok, _ := db.Has([]byte("discarded")); ok {
			t.Error("discarded batch should not write")
		}
	})
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB(t *testing.T) {
	db, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("NewLevelDB() error: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}

func TestOpen_Engines(t *testing.T) {
	for _, engine := range []string{EngineBadger, EngineLevelDB, EngineMemory} {
		t.Run(engine, func(t *testing.T) {
			db, err := Open(engine, t.TempDir())
			if err != nil {
				t.Fatalf("Open(%s) error: %v", engine, err)
			}
			defer db.Close()
			if err := db.Put([]byte("k"), []byte("v")); err != nil {
				t.Fatalf("Put() error: %v", err)
			}
		})
	}
	if _, err := Open("rocks", t.TempDir()); err == nil {
		t.Error("Open() with unknown engine should fail")
	}
}

func TestPersistence(t *testing.T) {
	openers := map[string]func(string) (DB, error){
		"badger":  func(p string) (DB, error) { return NewBadger(p) },
		"leveldb": func(p string) (DB, error) { return NewLevelDB(p) },
	}
	for name, open := range openers {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			db1, err := open(dir)
			if err != nil {
				t.Fatalf("open error: %v", err)
			}
			db1.Put([]byte("persist"), []byte("data"))
			db1.Close()

			db2, err := open(dir)
			if err != nil {
				t.Fatalf("reopen error: %v", err)
			}
			defer db2.Close()
			val, err := db2.Get([]byte("persist"))
			if err != nil {
				t.Fatalf("Get() after reopen error: %v", err)
			}
			if !bytes.Equal(val, []byte("data")) {
				t.Errorf("persisted value = %q, want %q", val, "data")
			}
		})
	}
}
