// Package notifications delivers capture session events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Individual events (session start/end, first detection, errors) can be
// gated in configuration so operators only hear about what they care
// about. Pipeline code depends only on the Service interface.
package notifications
