// Package discovery finds reset-capable devices on the local network with
// mDNS/DNS-SD.
//
// Devices (in practice, emulators) advertise one service type,
// _devreset._tcp. The instance name is "devreset-<device id>" and the SRV
// port is the main link. TXT records carry:
//
//   - id: device ID (required)
//   - vendor: vendor string (required)
//   - dbg: debug link port (optional; absent on production devices)
//   - init: "1" when the device already holds a seed, "0" otherwise
//
// Hosts browse for the service and connect with the advertised ports.
// Addresses from several interfaces are merged into one DeviceService.
package discovery
