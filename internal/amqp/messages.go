package amqp

import (
	"encoding/json"
	"time"
)

// RecomputeRequestMessage asks the worker to recompute the distribution of
// one fiscal year. It carries only the year and the trigger reason; the
// worker loads everything else from the database.
type RecomputeRequestMessage struct {
	FiscalYear int       `json:"fiscal_year"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRecomputeRequestMessage creates a recompute request for a fiscal year
func NewRecomputeRequestMessage(year int, reason string) *RecomputeRequestMessage {
	return &RecomputeRequestMessage{
		FiscalYear: year,
		Reason:     reason,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecomputeRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecomputeRequestMessageFromJSON creates a message from JSON bytes
func RecomputeRequestMessageFromJSON(data []byte) (*RecomputeRequestMessage, error) {
	var msg RecomputeRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DistributionComputedMessage announces that a fresh snapshot exists for a
// fiscal year, so listeners (e.g. the sheets exporter) can pick it up.
type DistributionComputedMessage struct {
	FiscalYear int       `json:"fiscal_year"`
	SnapshotID string    `json:"snapshot_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewDistributionComputedMessage creates a computed-distribution event
func NewDistributionComputedMessage(year int, snapshotID string) *DistributionComputedMessage {
	return &DistributionComputedMessage{
		FiscalYear: year,
		SnapshotID: snapshotID,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DistributionComputedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DistributionComputedMessageFromJSON creates a message from JSON bytes
func DistributionComputedMessageFromJSON(data []byte) (*DistributionComputedMessage, error) {
	var msg DistributionComputedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
