package models

type RelayAck struct {
	Name   string `json:"name"`
	Bytes  int    `json:"bytes"`
	Status string `json:"status"`
}

// Snapshot is a saved image handed to the relay.
type Snapshot struct {
	Name string
	Data []byte
}
