package ipc

import "jobtrail/internal/api"

// Empty is the argument for methods that take no input.
type Empty struct{}

// StatusResponse represents combined daemon, monitor, and registry status.
type StatusResponse = api.DaemonStatus

// AuthStartResponse carries the provider login URL.
type AuthStartResponse = api.AuthStartResponse

// AuthCompleteRequest carries the authorization code.
type AuthCompleteRequest = api.AuthCompleteRequest

// AuthCompleteResponse reports the connected account.
type AuthCompleteResponse = api.AuthCompleteResponse

// MonitorResponse reports the loop state after start or stop.
type MonitorResponse = api.MonitorResponse

// ScanResponse reports the outcome of a manual scan.
type ScanResponse = api.ScanResponse

// ApplicationsResponse lists applications grouped by stage.
type ApplicationsResponse = api.ApplicationsByStage

// Application mirrors the HTTP API application DTO.
type Application = api.Application

// ApplicationRequest identifies one application.
type ApplicationRequest struct {
	ID int64 `json:"id"`
}

// AddApplicationRequest creates or merges an application.
type AddApplicationRequest = api.AddApplicationRequest

// SetStageRequest overrides the stage of an application.
type SetStageRequest struct {
	ID    int64  `json:"id"`
	Stage string `json:"stage"`
}

// DeleteResponse indicates whether an application was removed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// TestNotificationResponse reports test notification delivery.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// ShutdownResponse acknowledges a daemon shutdown request.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
