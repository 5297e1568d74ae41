// Package emulator is a scripted stand-in for a hardware wallet.
//
// A Device implements the device side of every wire message the host
// tools send, including the reset flow, PIN and passphrase challenges, the
// wipe and load paths, and address and message signing. It also answers
// the debug link, exposing the internal reset entropy and the word on
// display, and accepts button decisions.
//
// Faults turn the emulator into a misbehaving device so hosts can be
// tested against tampering: altered words on either read-back pass,
// swapped entropy order, skipped or rejected PIN entries, a wrong final
// reply and a device that silently ignores passphrase protection.
//
// The Device can be used in-process (it satisfies the reset Exchanger and
// DebugLink interfaces) or served over TCP with Serve.
package emulator
