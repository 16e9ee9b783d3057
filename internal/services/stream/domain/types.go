// Package domain defines the live fan-out types and ports
package domain

import (
	json "github.com/goccy/go-json"
)

// KindGap marks a delivery discontinuity. A subscriber that receives one
// missed at least one event and should re-fetch the state it cares about
const KindGap = "gap"

// Event is one frame pushed to a subscriber. Seq is monotonic per subject;
// gap frames carry no subject and seq zero
type Event struct {
	Subject string          `json:"subject,omitempty" example:"shot:01J8ZQ3V0KXC9T2M5R7B4N6D8E"`
	Kind    string          `json:"kind" example:"reaction"`
	Seq     uint64          `json:"seq" example:"42"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
