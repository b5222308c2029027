package storage

import "fmt"

// Storage engine names accepted by Open.
const (
	EngineBadger  = "badger"
	EngineLevelDB = "leveldb"
	EngineMemory  = "memory"
)

// Open opens a database of the named engine at path.
func Open(engine, path string) (DB, error) {
	switch engine {
	case EngineBadger, "":
		return NewBadger(path)
	case EngineLevelDB:
		return NewLevelDB(path)
	case EngineMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage engine %q", engine)
	}
}
