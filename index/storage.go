package index

import (
	"fmt"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// DB is a wrapper around badger.DB keeping the per-variable sample
// series produced by the reshaping step. The series back the API's
// average-vs-time endpoint and the inspection REPL without re-reading
// the working sqlite database.
type DB struct {
	bdb *badger.DB
}

// Close closes the internal Badger database.
// It is necessary to perform the close especially
// in cases of data writing.
// It is possible to call the method on nil instance
// or on an uninitialized DB object, in which case
// it is a NOP.
func (db *DB) Close() error {
	if db != nil && db.bdb != nil {
		return db.bdb.Close()
	}
	return nil
}

func (db *DB) Flush() error {
	return db.bdb.DropAll()
}

func (db *DB) Size() (int64, int64) {
	return db.bdb.Size()
}

// StoreSamples writes a batch of samples in a single write batch.
// A sample with the same (machine, variable, time) replaces the
// previous one, so repeated detection runs do not grow the index.
func (db *DB) StoreSamples(samples []reading.VariableSample) error {
	wb := db.bdb.NewWriteBatch()
	defer wb.Cancel()
	for _, smp := range samples {
		value, err := msgpack.Marshal(smp)
		if err != nil {
			return fmt.Errorf("failed to store samples: %w", err)
		}
		key := encodeSeriesKey(smp.MachineID, smp.Variable, smp.Time)
		if err := wb.Set(key, value); err != nil {
			return fmt.Errorf("failed to store samples: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to store samples: %w", err)
	}
	return nil
}

// ReadRange loads a series of one (machine, variable) pair restricted
// to [from, to] (inclusive; zero times mean unbounded). Samples come
// out in chronological order thanks to the key encoding.
func (db *DB) ReadRange(
	machineID, variable string,
	from, to time.Time,
) ([]reading.VariableSample, error) {
	ans := make([]reading.VariableSample, 0, 100)
	err := db.bdb.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = encodeSeriesPrefix(machineID, variable)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			_, _, t, err := decodeSeriesKey(it.Item().Key())
			if err != nil {
				return err
			}
			if !from.IsZero() && t.Before(from) {
				continue
			}
			if !to.IsZero() && t.After(to) {
				break
			}
			err = it.Item().Value(func(val []byte) error {
				var smp reading.VariableSample
				if err := msgpack.Unmarshal(val, &smp); err != nil {
					return err
				}
				ans = append(ans, smp)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read sample range: %w", err)
	}
	return ans, nil
}

// Variables lists the distinct variable names indexed for a machine.
func (db *DB) Variables(machineID string) ([]string, error) {
	ans := make([]string, 0, 10)
	var last string
	err := db.bdb.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = encodeMachinePrefix(machineID)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			_, variable, _, err := decodeSeriesKey(it.Item().Key())
			if err != nil {
				return err
			}
			if variable != last {
				ans = append(ans, variable)
				last = variable
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list variables: %w", err)
	}
	return ans, nil
}

// StoreTimestamp keeps auxiliary markers such as the time of the last
// completed import.
func (db *DB) StoreTimestamp(key string, value time.Time) error {
	return db.bdb.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeAuxKey(key), encodeTime(value))
	})
}

func (db *DB) ReadTimestamp(key string) (time.Time, error) {
	var result time.Time
	err := db.bdb.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeAuxKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			t, decodeErr := decodeTime(val)
			if decodeErr != nil {
				return decodeErr
			}
			result = t
			return nil
		})
	})
	return result, err
}

func OpenDB(path string) (*DB, error) {
	opts := badger.DefaultOptions(path).
		WithValueLogFileSize(256 << 20). // 256MB value log files
		WithNumMemtables(8).             // More memtables for writes
		WithNumLevelZeroTables(8)

	ans := &DB{}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample index: %w", err)
	}
	ans.bdb = db
	return ans, nil
}
