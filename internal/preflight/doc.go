// Package preflight provides readiness checks for the directories and
// endpoints a capture session depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup, before the camera is opened.
//     Any failure aborts with the setup exit code so a misconfigured host
//     never half-starts a session.
//   - The CLI "colorrec status" command renders individual check results
//     (CheckDirectoryAccess, CheckDeviceNode) to display host health.
//
// Device presence is deliberately not part of RunAll: a missing camera is a
// runtime condition with its own exit code, reported when acquisition opens
// the device.
package preflight
