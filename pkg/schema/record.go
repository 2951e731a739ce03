// Package schema defines the shared data structures of the Cognivault ledger.
package schema

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Category is the cognitive domain a training record targets.
type Category string

const (
	CategoryMemory          Category = "Memory"
	CategoryAttention       Category = "Attention"
	CategoryProblemSolving  Category = "Problem Solving"
	CategoryProcessingSpeed Category = "Processing Speed"
)

// Categories lists every valid category, in display order.
var Categories = []Category{
	CategoryMemory,
	CategoryAttention,
	CategoryProblemSolving,
	CategoryProcessingSpeed,
}

// ParseCategory matches a string against the known categories.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Status is the lifecycle state of a training record.
// Transitions only move forward: pending -> active -> completed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// CanTransition reports whether moving from s to next is a legal
// forward transition. The ledger itself never checks this; enforcement
// lives entirely in the client.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusActive || next == StatusCompleted
	case StatusActive:
		return next == StatusCompleted
	default:
		return false
	}
}

// Training plan labels derived from the cognitive score.
const (
	PlanBasic        = "Basic Cognitive Enhancement"
	PlanIntermediate = "Intermediate Brain Training"
	PlanAdvanced     = "Advanced Neural Development"
)

// PlanForScore derives the training plan label for a score.
// Thresholds: below 40 is basic, 40-69 intermediate, 70 and up advanced.
func PlanForScore(score int) string {
	switch {
	case score < 40:
		return PlanBasic
	case score < 70:
		return PlanIntermediate
	default:
		return PlanAdvanced
	}
}

// ValidateScore checks the 0-100 bounds of a cognitive score.
func ValidateScore(score int) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("cognitive score %d out of range [0,100]", score)
	}
	return nil
}

// TrainingRecord is one training session as persisted in the ledger.
// JSON field names match the blobs the original dApp wrote, so existing
// stored entries decode unchanged.
type TrainingRecord struct {
	ID             string   `json:"id"`
	Owner          string   `json:"owner"`
	Category       Category `json:"category"`
	CognitiveScore int      `json:"cognitiveScore"`
	TrainingPlan   string   `json:"trainingPlan"`
	Status         Status   `json:"status"`
	Timestamp      int64    `json:"timestamp"`
	EncryptedData  string   `json:"encryptedData,omitempty"`
}

// NewRecordID produces an opaque, time-plus-random identifier.
func NewRecordID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + uuid.NewString()[:8]
}

// NewTrainingRecord builds a pending record with a fresh ID, the derived
// plan, and the current time. The caller validates the score and fills
// EncryptedData.
func NewTrainingRecord(owner string, category Category, score int) *TrainingRecord {
	return &TrainingRecord{
		ID:             NewRecordID(),
		Owner:          owner,
		Category:       category,
		CognitiveScore: score,
		TrainingPlan:   PlanForScore(score),
		Status:         StatusPending,
		Timestamp:      time.Now().Unix(),
	}
}
