package sdk

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognivault-dev/cognivault-ledger/internal/ledger"
	"github.com/cognivault-dev/cognivault-ledger/pkg/schema"
)

func newTestRecordStore(t *testing.T, opts ...RecordOption) (*RecordStore, ChainStore) {
	t.Helper()
	store := ledger.NewMemLedger(nil, nil, nil)
	return NewRecordStore(store, opts...), store
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := &schema.TrainingRecord{
		ID:             "r1",
		Owner:          "0xabc",
		Category:       schema.CategoryAttention,
		CognitiveScore: 72,
		TrainingPlan:   schema.PlanAdvanced,
		Status:         schema.StatusPending,
		Timestamp:      time.Now().Unix(),
		EncryptedData:  "b3BhcXVl",
	}

	data, err := EncodeRecord(r)
	require.NoError(t, err)

	got, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestDecodeRecord_LegacyBareJSON(t *testing.T) {
	// Blobs written before the envelope existed are bare records.
	legacy := `{"id":"old1","owner":"0xabc","category":"Memory","cognitiveScore":30,` +
		`"trainingPlan":"Basic Cognitive Enhancement","status":"pending","timestamp":1700000000}`

	got, err := DecodeRecord([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, "old1", got.ID)
	assert.Equal(t, schema.CategoryMemory, got.Category)
	assert.Equal(t, 30, got.CognitiveScore)
}

func TestDecodeRecord_Garbage(t *testing.T) {
	_, err := DecodeRecord([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeRecord([]byte(`{"unrelated":true}`))
	assert.Error(t, err)
}

func TestSubmit_WritesRecordAndIndex(t *testing.T) {
	rs, store := newTestRecordStore(t)

	r, err := rs.Submit("0xabc", schema.CategoryMemory, 55)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusPending, r.Status)
	assert.Equal(t, schema.PlanIntermediate, r.TrainingPlan)
	assert.NotEmpty(t, r.EncryptedData)

	// Record key exists
	data, err := store.GetData(RecordKey(r.ID))
	require.NoError(t, err)
	got, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	// Index holds the id
	idxData, err := store.GetData(IndexKey)
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal(idxData, &ids))
	assert.Equal(t, []string{r.ID}, ids)
}

func TestSubmit_Validation(t *testing.T) {
	rs, _ := newTestRecordStore(t)

	_, err := rs.Submit("0xabc", "Juggling", 50)
	assert.Error(t, err)

	_, err = rs.Submit("0xabc", schema.CategoryMemory, 101)
	assert.Error(t, err)
}

func TestIndexAppend_Monotonic(t *testing.T) {
	rs, store := newTestRecordStore(t)

	previous := []string{}
	for i := 0; i < 5; i++ {
		_, err := rs.Submit("0xabc", schema.CategoryAttention, 40+i)
		require.NoError(t, err)

		idxData, err := store.GetData(IndexKey)
		require.NoError(t, err)
		var ids []string
		require.NoError(t, json.Unmarshal(idxData, &ids))

		// The index only grows, and keeps every earlier id.
		require.Len(t, ids, i+1)
		assert.Equal(t, previous, ids[:len(previous)])
		previous = ids
	}
}

func TestIndexAppend_UnparseableIndexTreatedAsEmpty(t *testing.T) {
	rs, store := newTestRecordStore(t)

	require.NoError(t, store.SetData(IndexKey, []byte("{{corrupt")))

	r, err := rs.Submit("0xabc", schema.CategoryMemory, 10)
	require.NoError(t, err)

	idxData, err := store.GetData(IndexKey)
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal(idxData, &ids))
	assert.Equal(t, []string{r.ID}, ids)
}

func TestList_DropsUndecodableRecords(t *testing.T) {
	rs, store := newTestRecordStore(t)

	good, err := rs.Submit("0xabc", schema.CategoryProblemSolving, 80)
	require.NoError(t, err)

	// Corrupt a second indexed record, and index a third id with no entry.
	bad, err := rs.Submit("0xabc", schema.CategoryMemory, 20)
	require.NoError(t, err)
	require.NoError(t, store.SetData(RecordKey(bad.ID), []byte("garbage")))

	idxData, _ := store.GetData(IndexKey)
	var ids []string
	require.NoError(t, json.Unmarshal(idxData, &ids))
	ids = append(ids, "phantom")
	idxData, _ = json.Marshal(ids)
	require.NoError(t, store.SetData(IndexKey, idxData))

	records, err := rs.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, good.ID, records[0].ID)
}

func TestList_SortedNewestFirst(t *testing.T) {
	rs, store := newTestRecordStore(t)

	// Write records with controlled timestamps directly.
	ids := []string{"a", "b", "c"}
	stamps := []int64{100, 300, 200}
	for i, id := range ids {
		data, err := EncodeRecord(&schema.TrainingRecord{
			ID:        id,
			Owner:     "0xabc",
			Category:  schema.CategoryMemory,
			Status:    schema.StatusPending,
			Timestamp: stamps[i],
		})
		require.NoError(t, err)
		require.NoError(t, store.SetData(RecordKey(id), data))
	}
	idxData, _ := json.Marshal(ids)
	require.NoError(t, store.SetData(IndexKey, idxData))

	records, err := rs.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "b", records[0].ID)
	assert.Equal(t, "c", records[1].ID)
	assert.Equal(t, "a", records[2].ID)
}

func TestStatusTransitions(t *testing.T) {
	rs, _ := newTestRecordStore(t)

	r, err := rs.Submit("0xabc", schema.CategoryProcessingSpeed, 65)
	require.NoError(t, err)

	active, err := rs.Activate(r.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusActive, active.Status)

	// Re-activating an active record is rejected.
	_, err = rs.Activate(r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := rs.Complete(r.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusCompleted, done.Status)

	// Completed records never move again.
	_, err = rs.Activate(r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = rs.Complete(r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// The persisted state reflects the final status.
	got, err := rs.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusCompleted, got.Status)
}

func TestComplete_DirectFromPending(t *testing.T) {
	rs, _ := newTestRecordStore(t)

	r, err := rs.Submit("0xabc", schema.CategoryMemory, 45)
	require.NoError(t, err)

	done, err := rs.Complete(r.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusCompleted, done.Status)
}

func TestGet_Missing(t *testing.T) {
	rs, _ := newTestRecordStore(t)
	_, err := rs.Get("nope")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestGuardedIndexAppend(t *testing.T) {
	rs, store := newTestRecordStore(t, WithGuardedIndex())

	r1, err := rs.Submit("0xabc", schema.CategoryMemory, 10)
	require.NoError(t, err)
	r2, err := rs.Submit("0xabc", schema.CategoryMemory, 90)
	require.NoError(t, err)

	idxData, err := store.GetData(IndexKey)
	require.NoError(t, err)
	var ids []string
	require.NoError(t, json.Unmarshal(idxData, &ids))
	assert.Equal(t, []string{r1.ID, r2.ID}, ids)
}
