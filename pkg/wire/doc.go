// Package wire defines the device message set and its CBOR encoding.
//
// Every message travels in an envelope keyed by integers:
//
//	{
//	  1: type,   // uint16 message type
//	  2: body    // message-specific CBOR map (may be empty)
//	}
//
// Message type numbers follow the device firmware's message IDs so captures
// can be compared against firmware traces. Debug link messages (100+) are
// only accepted on the debug channel.
package wire
