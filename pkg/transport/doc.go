// Package transport carries wire messages between a host and a device.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   CBOR envelope (pkg/wire)     │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// A device exposes two links: the main link used by the reset handshake
// and a debug link, offered by test devices and the emulator, for
// inspecting internal state and pressing the confirm button. Link.Call is strictly request/reply; the device answers every
// request on the same link, including debug decisions (with Success).
//
// Deadlines and cancellation come from the caller's context. There is no
// keep-alive: a reset is a short, interactive exchange.
package transport
