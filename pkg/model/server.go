package model

// Server statuses reported by the compute backend.
const (
	ServerStatusBuild  = "BUILD"
	ServerStatusActive = "ACTIVE"
	ServerStatusError  = "ERROR"
)

// ServerSpec describes an instance to create. NetworkIDs are attached in
// order.
type ServerSpec struct {
	Name       string
	ImageID    string
	FlavorID   string
	NetworkIDs []string
}

// Server is an instance as reported by the compute backend.
type Server struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
}
