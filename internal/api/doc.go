// Package api defines the route capabilities shared by the HTTP and IPC
// layers, together with their wire-format types.
//
// # Key Types
//
// Service: the facade both transports call. It owns the OAuth state tokens,
// drives the monitor, and translates registry models into DTOs.
//
// Application: transport representation of a tracked application.
//
// ApplicationsByStage: the grouped listing with every stage present, in
// lifecycle order.
//
// Status: monitor state plus registry totals.
//
// # Design Notes
//
// Errors returned by Service carry the markers from internal/services so each
// transport can map them (HTTP status codes, IPC error strings) with
// errors.Is. Timestamps use RFC3339 with milliseconds.
package api
