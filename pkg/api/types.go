package api

import (
	"time"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string
}

// PacketJSON is one packet in request and response bodies. Data is hex.
type PacketJSON struct {
	Timestamp uint64 `json:"timestamp"`
	Data      string `json:"data"`
}

// SendRequest is the JSON body of a send request
type SendRequest struct {
	Packets []PacketJSON `json:"packets"`
}

// SendResult reports a list handed to the router
type SendResult struct {
	Endpoint string `json:"endpoint"`
	Packets  int    `json:"packets"`
	Bytes    int    `json:"bytes"`
}

// ClipRequest is the JSON body used to save a clip
type ClipRequest struct {
	Name    string       `json:"name"`
	Packets []PacketJSON `json:"packets"`
}

// ClipSummary describes a stored clip
type ClipSummary struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
	Packets int       `json:"packets"`
	Bytes   int       `json:"bytes"`
}

// ClipResponse is a stored clip with its packets
type ClipResponse struct {
	ClipSummary
	Layout string       `json:"layout"`
	List   []PacketJSON `json:"list"`
}
