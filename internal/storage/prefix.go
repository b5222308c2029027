package storage

// PrefixDB wraps a DB and prepends a fixed prefix to all keys.
// Each logical store of the node (configuration, balances, transaction
// log, staking log) lives in its own namespace of one underlying database.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a new PrefixDB wrapping inner with the given prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	p := make([]byte, len(prefix))
	copy(p, prefix)
	return &PrefixDB{inner: inner, prefix: p}
}

func (p *PrefixDB) prefixed(key []byte) []byte {
	return withPrefix(p.prefix, key)
}

func withPrefix(prefix, key []byte) []byte {
	out := make([]byte, len(prefix)+len(key))
	copy(out, prefix)
	copy(out[len(prefix):], key)
	return out
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.prefixed(key))
}

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(p.prefixed(key), value)
}

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(p.prefixed(key))
}

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(p.prefixed(key))
}

// ForEach iterates over all keys with the given prefix within the
// namespace. Keys passed to fn have the namespace stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(p.prefixed(prefix), func(key, value []byte) error {
		return fn(key[len(p.prefix):], value)
	})
}

// Close is a no-op; the outer DB manages its own lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}

// Wrap returns a Writer that stages namespaced writes into w. Stores use it
// to put their mutations into a batch opened on the root database.
func (p *PrefixDB) Wrap(w Writer) Writer {
	return &prefixWriter{inner: w, prefix: p.prefix}
}

// NewBatch creates a batch that prepends the prefix to all keys, delegating
// to the inner DB's batch for atomic commits.
func (p *PrefixDB) NewBatch() Batch {
	return &prefixBatch{batch: NewBatch(p.inner), prefix: p.prefix}
}

type prefixWriter struct {
	inner  Writer
	prefix []byte
}

func (pw *prefixWriter) Put(key, value []byte) error {
	return pw.inner.Put(withPrefix(pw.prefix, key), value)
}

func (pw *prefixWriter) Delete(key []byte) error {
	return pw.inner.Delete(withPrefix(pw.prefix, key))
}

type prefixBatch struct {
	batch  Batch
	prefix []byte
}

func (pb *prefixBatch) Put(key, value []byte) error {
	return pb.batch.Put(withPrefix(pb.prefix, key), value)
}

func (pb *prefixBatch) Delete(key []byte) error {
	return pb.batch.Delete(withPrefix(pb.prefix, key))
}

func (pb *prefixBatch) Commit() error { return pb.batch.Commit() }

func (pb *prefixBatch) Discard() { pb.batch.Discard() }

// NewBatch returns db's native batch, or a buffered non-atomic fallback
// when db does not implement Batcher.
func NewBatch(db DB) Batch {
	if b, ok := db.(Batcher); ok {
		return b.NewBatch()
	}
	return &fallbackBatch{db: db}
}

// fallbackBatch buffers writes and applies them one by one on Commit.
type fallbackBatch struct {
	db  DB
	ops []memoryOp
}

func (fb *fallbackBatch) Put(key, value []byte) error {
	v := clone(value)
	if v == nil {
		v = []byte{}
	}
	fb.ops = append(fb.ops, memoryOp{key: string(key), value: v})
	return nil
}

func (fb *fallbackBatch) Delete(key []byte) error {
	fb.ops = append(fb.ops, memoryOp{key: string(key)})
	return nil
}

func (fb *fallbackBatch) Commit() error {
	for _, op := range fb.ops {
		var err error
		if op.value == nil {
			err = fb.db.Delete([]byte(op.key))
		} else {
			err = fb.db.Put([]byte(op.key), op.value)
		}
		if err != nil {
			return err
		}
	}
	fb.ops = nil
	return nil
}

func (fb *fallbackBatch) Discard() {
	fb.ops = nil
}
