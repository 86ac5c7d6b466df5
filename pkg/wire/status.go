package wire

import (
	"encoding/json"
	"fmt"
)

// TimeLayout is the timestamp format used in status reports.
const TimeLayout = "2006-01-02 15:04:05.000000"

// StatusReport is the JSON document carried by a STATUS payload.
type StatusReport struct {
	Capacity int            `json:"capacity"`
	Active   int            `json:"active"`
	Clients  []ClientStatus `json:"clients"`
}

// ClientStatus describes one session, active or finished.
type ClientStatus struct {
	Name           string   `json:"name"`
	Address        Endpoint `json:"address"`
	ConnectedAt    string   `json:"connected_at"`
	DisconnectedAt *string  `json:"disconnected_at"`
}

// Endpoint is a host and port, encoded as a two-element JSON array.
type Endpoint struct {
	Host string
	Port int
}

// MarshalJSON encodes the endpoint as ["host", port].
func (e Endpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Host, e.Port})
}

// UnmarshalJSON decodes ["host", port].
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("endpoint: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Host); err != nil {
		return fmt.Errorf("endpoint host: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Port); err != nil {
		return fmt.Errorf("endpoint port: %w", err)
	}
	return nil
}

// EncodeStatus serializes a report the way servers send it.
func EncodeStatus(r StatusReport) ([]byte, error) {
	if r.Clients == nil {
		r.Clients = []ClientStatus{}
	}
	return json.MarshalIndent(r, "", "    ")
}

// DecodeStatus parses a STATUS payload.
func DecodeStatus(data []byte) (StatusReport, error) {
	var r StatusReport
	if err := json.Unmarshal(data, &r); err != nil {
		return StatusReport{}, fmt.Errorf("decode status: %w", err)
	}
	return r, nil
}
