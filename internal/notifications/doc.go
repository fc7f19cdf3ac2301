// Package notifications delivers job events to ntfy.
//
// The topic comes from the notifications section of config.toml. Without a
// topic the service is a no-op, and each event family can be switched off
// individually. Workflow code depends only on the Service interface.
package notifications
