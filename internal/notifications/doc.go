// Package notifications delivers tracker events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Stage change and
// monitor error events can be switched off independently through the
// [notifications] section.
//
// All callers depend only on the Service interface.
package notifications
