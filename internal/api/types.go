package api

import "jobtrail/internal/monitor"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Application describes a tracked application in a transport-friendly format.
type Application struct {
	ID          int64  `json:"id"`
	Company     string `json:"company"`
	Position    string `json:"position"`
	Stage       string `json:"stage"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// StageGroup is one bucket of the grouped listing.
type StageGroup struct {
	Stage        string        `json:"stage"`
	Applications []Application `json:"applications"`
}

// ApplicationsByStage lists every stage in lifecycle order, including empty
// ones.
type ApplicationsByStage struct {
	Total  int          `json:"total"`
	Groups []StageGroup `json:"groups"`
}

// Status summarizes monitor and registry state.
type Status struct {
	Monitor      monitor.Status `json:"monitor"`
	Applications int            `json:"applications"`
	Counts       map[string]int `json:"counts"`
}

// AuthStartResponse carries the provider login URL.
type AuthStartResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// AuthCompleteRequest carries the authorization code returned by the
// provider.
type AuthCompleteRequest struct {
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
}

// AuthCompleteResponse reports the connected account.
type AuthCompleteResponse struct {
	Account        string `json:"account"`
	Restored       int    `json:"restored"`
	MonitorRunning bool   `json:"monitor_running"`
}

// MonitorResponse reports the loop state after a start or stop request.
type MonitorResponse struct {
	Running bool `json:"running"`
}

// ScanResponse reports the outcome of a manual scan.
type ScanResponse struct {
	Fetched    int `json:"fetched"`
	Classified int `json:"classified"`
	Merged     int `json:"merged"`
	Total      int `json:"total"`
}

// AddApplicationRequest creates or merges an application. Stage defaults to
// Applied.
type AddApplicationRequest struct {
	Company  string `json:"company"`
	Position string `json:"position"`
	Stage    string `json:"stage,omitempty"`
}

// SetStageRequest overrides an application's stage.
type SetStageRequest struct {
	Stage string `json:"stage"`
}

// DaemonStatus is the full status payload returned by the daemon.
type DaemonStatus struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	DatabasePath string `json:"database_path"`
	LockFilePath string `json:"lock_file_path"`
	APIAddress   string `json:"api_address,omitempty"`
	Status
}
