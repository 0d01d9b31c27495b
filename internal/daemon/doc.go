// Package daemon coordinates the long-running colorrec process and system
// integration points.
//
// It wires configuration, the detection index, and capture sessions into a
// single lifecycle with flock-based locking to prevent multiple instances.
// Each session gets a fresh engine from the factory; when hotplug recovery is
// enabled, a session lost to a vanished camera is restarted once the node
// reappears (udev netlink events, with node polling as fallback).
//
// Keep orchestration logic here: frame processing lives in the triage
// package while the daemon focuses on startup, shutdown, and recovery.
package daemon
