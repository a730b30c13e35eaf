package marmot

import (
	badger "github.com/dgraph-io/badger/v4"
)

// Storage is the engine's persistence handle. The interface is sealed:
// both provided implementations are badger-backed, one in memory and one
// on disk with optional at-rest encryption. Ownership transfers into the
// engine at construction; the adapter retains a reference only to keep
// the handle alive.
type Storage interface {
	Put(key, value []byte) error
	Get(key []byte) (value []byte, err error)
	Delete(key []byte) error
	Close() error

	sealedStorage()
}

type badgerStorage struct {
	db *badger.DB
}

// NewMemoryStorage opens a storage handle that lives entirely in memory.
// For tests.
func NewMemoryStorage() (Storage, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true))
}

// NewFileStorage opens a file-backed storage handle at path. A non-empty
// encryptionKey (16, 24 or 32 bytes) enables at-rest encryption.
func NewFileStorage(path string, encryptionKey []byte) (Storage, error) {
	opts := badger.DefaultOptions(path)
	if len(encryptionKey) > 0 {
		switch len(encryptionKey) {
		case 16, 24, 32:
		default:
			return nil, errf(CodeInvalidInput,
				"encryption key must be 16, 24 or 32 bytes, got %d",
				len(encryptionKey))
		}
		// badger requires an index cache when encryption is on
		opts = opts.WithEncryptionKey(encryptionKey).
			WithIndexCacheSize(64 << 20)
	}
	return openBadger(opts)
}

func openBadger(opts badger.Options) (Storage, error) {
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, wrapErr(CodeStorage, "failed to open storage", err)
	}
	return &badgerStorage{db: db}, nil
}

func (s *badgerStorage) sealedStorage() {}

func (s *badgerStorage) Put(key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return wrapErr(CodeStorage, "put failed", err)
	}
	return nil
}

func (s *badgerStorage) Get(key []byte) (value []byte, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, e := txn.Get(key)
		if e != nil {
			return e
		}
		value, e = item.ValueCopy(nil)
		return e
	})
	if err != nil {
		return nil, wrapErr(CodeStorage, "get failed", err)
	}
	return
}

func (s *badgerStorage) Delete(key []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return wrapErr(CodeStorage, "delete failed", err)
	}
	return nil
}

func (s *badgerStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return wrapErr(CodeStorage, "close failed", err)
	}
	return nil
}
