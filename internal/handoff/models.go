// Package handoff stores the per-session snapshots one dashboard screen
// leaves for the next. Each value is a versioned JSON envelope that is
// replaced wholesale on write and read defensively.
package handoff

import (
	"encoding/json"
	"time"
)

// EnvelopeVersion is the only envelope version this service reads.
const EnvelopeVersion = 1

// Snapshot keys shared with the dashboard.
const (
	KeyDischargePlan        = "imms.dischargePlan"
	KeyDischargePlanContext = "imms.dischargePlanContext"
	KeyDischargePlanMeta    = "imms.dischargePlanMeta"
	KeyCurrentAssessment    = "imms.currentAssessment"
)

// Envelope wraps every stored payload.
type Envelope struct {
	Version   int             `json:"version"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	WrittenAt time.Time       `json:"written_at"`
}
