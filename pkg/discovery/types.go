package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of reset-capable devices.
	ServiceType = "_devreset._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default main link port.
	DefaultPort = 21324

	// InstancePrefix starts every instance name.
	InstancePrefix = "devreset-"
)

// TXT record keys.
const (
	TXTKeyDeviceID    = "id"
	TXTKeyVendor      = "vendor"
	TXTKeyDebugPort   = "dbg"
	TXTKeyInitialized = "init"
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 5 * time.Second

	// DefaultTTL is the default DNS record TTL.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// DeviceInfo is what a device advertises about itself.
type DeviceInfo struct {
	DeviceID string
	Vendor   string

	// Port is the main link port (default DefaultPort).
	Port uint16

	// DebugPort is the debug link port; zero means no debug link.
	DebugPort uint16

	Initialized bool
}

// InstanceName returns the DNS-SD instance name for the device.
func (i *DeviceInfo) InstanceName() string {
	name := InstancePrefix + i.DeviceID
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// DeviceService is a device found by browsing.
type DeviceService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	DeviceID    string
	Vendor      string
	DebugPort   uint16
	Initialized bool
}

// Address returns host:port for the main link using the first address,
// falling back to the host name.
func (s *DeviceService) Address() string {
	return net.JoinHostPort(s.host(), strconv.Itoa(int(s.Port)))
}

// DebugAddress returns host:port for the debug link, or "" if the device
// advertises none.
func (s *DeviceService) DebugAddress() string {
	if s.DebugPort == 0 {
		return ""
	}
	return net.JoinHostPort(s.host(), strconv.Itoa(int(s.DebugPort)))
}

func (s *DeviceService) host() string {
	if len(s.Addresses) > 0 {
		return s.Addresses[0]
	}
	return s.Host
}
