package sdk

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/cognivault-dev/cognivault-ledger/pkg/schema"
)

// IndexKey is the well-known key holding the JSON array of record ids.
const IndexKey = "training_keys"

const recordKeyPrefix = "training_"

// RecordKey returns the storage key for a record id.
func RecordKey(id string) string {
	return recordKeyPrefix + id
}

// envelopeVersion is the current wire version of encoded records.
const envelopeVersion = 1

// recordEnvelope wraps a record with a schema version. Decoding falls
// back to bare record JSON for blobs written before the envelope existed.
type recordEnvelope struct {
	Version int                    `json:"v"`
	Record  *schema.TrainingRecord `json:"record"`
}

// EncodeRecord serializes a record into its stored form.
func EncodeRecord(r *schema.TrainingRecord) ([]byte, error) {
	return json.Marshal(recordEnvelope{Version: envelopeVersion, Record: r})
}

// DecodeRecord parses stored bytes back into a record. Versioned
// envelopes and legacy bare records are both accepted.
func DecodeRecord(data []byte) (*schema.TrainingRecord, error) {
	var env recordEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Version > 0 && env.Record != nil {
		return env.Record, nil
	}

	var r schema.TrainingRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("undecodable record: %w", err)
	}
	if r.ID == "" {
		return nil, errors.New("undecodable record: missing id")
	}
	return &r, nil
}

// sealPayload produces the opaque EncryptedData blob. It is base64 of the
// score payload, a stand-in for the client-side homomorphic encryption
// the ledger contract expects; it has no cryptographic property.
func sealPayload(category schema.Category, score int) string {
	payload, _ := json.Marshal(map[string]any{
		"category": category,
		"score":    score,
	})
	return base64.StdEncoding.EncodeToString(payload)
}

// RecordOption configures a RecordStore.
type RecordOption func(*RecordStore)

// WithGuardedIndex switches index appends to compare-and-swap with
// bounded retries. The default path keeps the original read-modify-write
// semantics, including its lost-append race under concurrent writers.
func WithGuardedIndex() RecordOption {
	return func(rs *RecordStore) { rs.guarded = true }
}

// RecordStore layers the training-record persistence convention over a
// raw ChainStore: one record per training_<id> key plus a single index
// key listing every known id.
type RecordStore struct {
	store   ChainStore
	guarded bool
}

// NewRecordStore wraps a ChainStore with the record convention.
func NewRecordStore(store ChainStore, opts ...RecordOption) *RecordStore {
	rs := &RecordStore{store: store}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Submit validates the input, writes the record, then appends its id to
// the index. The two writes are independent: if the index append fails
// the record is already stored and stays orphaned — the error reports
// the id so a human can resubmit or repair.
func (rs *RecordStore) Submit(owner string, category schema.Category, score int) (*schema.TrainingRecord, error) {
	if _, err := schema.ParseCategory(string(category)); err != nil {
		return nil, err
	}
	if err := schema.ValidateScore(score); err != nil {
		return nil, err
	}

	record := schema.NewTrainingRecord(owner, category, score)
	record.EncryptedData = sealPayload(category, score)

	data, err := EncodeRecord(record)
	if err != nil {
		return nil, err
	}
	if err := rs.store.SetData(RecordKey(record.ID), data); err != nil {
		return nil, fmt.Errorf("store record: %w", err)
	}

	if err := rs.appendIndex(record.ID); err != nil {
		return record, fmt.Errorf("record %s stored but index update failed: %w", record.ID, err)
	}
	return record, nil
}

// Get fetches and decodes a single record.
func (rs *RecordStore) Get(id string) (*schema.TrainingRecord, error) {
	data, err := rs.store.GetData(RecordKey(id))
	if err != nil {
		return nil, err
	}
	return DecodeRecord(data)
}

// List reads the index and fetches every record. Missing or undecodable
// entries are dropped, not surfaced. Results are sorted by timestamp
// descending, newest first.
func (rs *RecordStore) List() ([]*schema.TrainingRecord, error) {
	ids := rs.loadIndex()

	records := make([]*schema.TrainingRecord, 0, len(ids))
	for _, id := range ids {
		r, err := rs.Get(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[Cognivault SDK] Skipping record %s: %v\n", id, err)
			continue
		}
		records = append(records, r)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
	return records, nil
}

// Activate moves a pending record to active. Enforcement is client-side
// only; the ledger accepts any bytes.
func (rs *RecordStore) Activate(id string) (*schema.TrainingRecord, error) {
	return rs.transition(id, schema.StatusActive)
}

// Complete moves a pending or active record to completed.
func (rs *RecordStore) Complete(id string) (*schema.TrainingRecord, error) {
	return rs.transition(id, schema.StatusCompleted)
}

// transition performs a read-modify-write of the record key.
func (rs *RecordStore) transition(id string, next schema.Status) (*schema.TrainingRecord, error) {
	record, err := rs.Get(id)
	if err != nil {
		return nil, err
	}
	if !record.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, record.Status, next)
	}

	record.Status = next
	data, err := EncodeRecord(record)
	if err != nil {
		return nil, err
	}
	if err := rs.store.SetData(RecordKey(id), data); err != nil {
		return nil, err
	}
	return record, nil
}

// loadIndex reads the index array. An absent or unparseable index is
// treated as empty; the failure is swallowed.
func (rs *RecordStore) loadIndex() []string {
	ids, _ := rs.loadIndexRaw()
	return ids
}

// loadIndexRaw additionally returns the raw stored bytes (nil when the
// key is absent) so the guarded path can compare-and-swap against them.
func (rs *RecordStore) loadIndexRaw() ([]string, []byte) {
	data, err := rs.store.GetData(IndexKey)
	if err != nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, data
	}
	return ids, data
}

// appendIndex adds an id to the index. The default path is the original
// read-modify-write of the whole array: not atomic, and two concurrent
// appenders can lose one write. The guarded path retries through
// CompareAndSwapData until it lands or gives up.
func (rs *RecordStore) appendIndex(id string) error {
	if !rs.guarded {
		ids := rs.loadIndex()
		data, err := json.Marshal(append(ids, id))
		if err != nil {
			return err
		}
		return rs.store.SetData(IndexKey, data)
	}

	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ids, raw := rs.loadIndexRaw()
		data, err := json.Marshal(append(ids, id))
		if err != nil {
			return err
		}
		err = rs.store.CompareAndSwapData(IndexKey, raw, data)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrCASMismatch) {
			return err
		}
	}
	return fmt.Errorf("index append for %s: %w after retries", id, ErrCASMismatch)
}
