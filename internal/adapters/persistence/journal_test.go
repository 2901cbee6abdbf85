package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/swap-engine/internal/domain"
)

type memStore struct {
	buckets map[string]map[string][]byte
	err     error
	closed  bool
}

func newMemStore() *memStore {
	return &memStore{buckets: map[string]map[string][]byte{}}
}

func (m *memStore) Set(bucket string, key, value []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.buckets[bucket] == nil {
		m.buckets[bucket] = map[string][]byte{}
	}
	m.buckets[bucket][string(key)] = value
	return nil
}

func (m *memStore) List(bucket string) (map[string][]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string][]byte, len(m.buckets[bucket]))
	for k, v := range m.buckets[bucket] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func record(id string, outcome domain.ExecutionOutcome, started time.Time) *domain.ExecutionRecord {
	return &domain.ExecutionRecord{
		ID:        id,
		InputMint: "So11111111111111111111111111111111111111112",
		SwapMode:  "ExactIn",
		Amount:    "1000",
		Outcome:   string(outcome),
		StartedAt: started,
		Legs: []domain.LegRecord{
			{Index: 1, AmountIn: "1000", AmountOut: "1992", State: "confirmed"},
		},
	}
}

func TestJournalSaveAndGet(t *testing.T) {
	store := newMemStore()
	j := NewJournalWithStore(store)

	rec := record("exec-1", domain.OutcomePartial, time.Now().UTC().Truncate(time.Second))
	require.NoError(t, j.Save(rec))

	got, err := j.Get("exec-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Outcome, got.Outcome)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))
	require.Len(t, got.Legs, 1)
	assert.Equal(t, "1992", got.Legs[0].AmountOut)

	_, err = j.Get("missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, j.Close())
	assert.True(t, store.closed)
}

func TestJournalListFiltersAndOrders(t *testing.T) {
	j := NewJournalWithStore(newMemStore())
	base := time.Now().UTC()

	require.NoError(t, j.Save(record("old-partial", domain.OutcomePartial, base.Add(-time.Hour))))
	require.NoError(t, j.Save(record("completed", domain.OutcomeCompleted, base.Add(-30*time.Minute))))
	require.NoError(t, j.Save(record("new-partial", domain.OutcomePartial, base)))

	all, err := j.List("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new-partial", all[0].ID)
	assert.Equal(t, "old-partial", all[2].ID)

	partial, err := j.List(string(domain.OutcomePartial))
	require.NoError(t, err)
	require.Len(t, partial, 2)
	assert.Equal(t, "new-partial", partial[0].ID)
	assert.Equal(t, "old-partial", partial[1].ID)
}

func TestJournalSkipsCorruptRecords(t *testing.T) {
	store := newMemStore()
	j := NewJournalWithStore(store)
	require.NoError(t, j.Save(record("ok", domain.OutcomeCompleted, time.Now())))
	require.NoError(t, store.Set(ExecutionsBucket, []byte("bad"), []byte("{not json")))

	recs, err := j.List("")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ok", recs[0].ID)
}

func TestJournalErrors(t *testing.T) {
	store := newMemStore()
	j := NewJournalWithStore(store)

	assert.Error(t, j.Save(nil))
	assert.Error(t, j.Save(&domain.ExecutionRecord{}))

	store.err = errors.New("disk full")
	assert.ErrorIs(t, j.Save(record("x", domain.OutcomeNone, time.Now())), store.err)
	_, err := j.List("")
	assert.ErrorIs(t, err, store.err)
}
