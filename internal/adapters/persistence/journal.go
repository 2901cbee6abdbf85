package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/domain"
)

const (
	ExecutionsBucket = "executions"

	DefaultDBPath = "./data/swap-engine.db"
)

var ErrRecordNotFound = errors.New("execution record not found")

// KVStore is the subset of the bolt database used by the journal.
type KVStore interface {
	Set(bucket string, key []byte, value []byte) error
	List(bucket string) (map[string][]byte, error)
	Close() error
}

// Journal persists every execution result so partially executed routes stay visible
// after a restart.
type Journal struct {
	db KVStore
}

func NewJournal(dbPath string) (*Journal, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[ExecutionJournal] opened database")
	return NewJournalWithStore(db), nil
}

func NewJournalWithStore(store KVStore) *Journal {
	return &Journal{db: store}
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func (j *Journal) Save(rec *domain.ExecutionRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("execution record without id")
	}
	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", rec.ID, err)
	}
	if err := j.db.Set(ExecutionsBucket, []byte(rec.ID), data); err != nil {
		return fmt.Errorf("failed to save execution %s: %w", rec.ID, err)
	}

	if rec.Outcome == string(domain.OutcomePartial) {
		log.Warn().Str("id", rec.ID).Msg("[ExecutionJournal] partial route recorded")
	}
	return nil
}

func (j *Journal) Get(id string) (*domain.ExecutionRecord, error) {
	data, err := j.db.List(ExecutionsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	value, ok := data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	var rec domain.ExecutionRecord
	if err := sonic.Unmarshal(value, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}
	return &rec, nil
}

// List returns records newest first. An empty outcome matches every record.
func (j *Journal) List(outcome string) ([]*domain.ExecutionRecord, error) {
	data, err := j.db.List(ExecutionsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	records := make([]*domain.ExecutionRecord, 0, len(data))
	for id, value := range data {
		var rec domain.ExecutionRecord
		if err := sonic.Unmarshal(value, &rec); err != nil {
			log.Error().Str("id", id).Err(err).Msg("[ExecutionJournal] failed to unmarshal execution, skipping")
			continue
		}
		if outcome != "" && rec.Outcome != outcome {
			continue
		}
		records = append(records, &rec)
	}

	sort.Slice(records, func(a, b int) bool {
		return records[a].StartedAt.After(records[b].StartedAt)
	})
	return records, nil
}
