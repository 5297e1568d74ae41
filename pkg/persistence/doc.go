// Package persistence stores small JSON state files.
//
// DeviceStateStore keeps the emulator's configuration across restarts,
// including its mnemonic, so it is written with owner-only permissions.
// HostStateStore keeps a history of reset sessions run by the host and
// never contains seed material.
package persistence
