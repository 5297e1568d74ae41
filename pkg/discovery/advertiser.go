package discovery

import (
	"context"
	"time"
)

// Advertiser publishes a device on the local network.
type Advertiser interface {
	// Advertise starts advertising the device, replacing any earlier
	// advertisement.
	Advertise(ctx context.Context, info *DeviceInfo) error

	// Update changes the TXT records of the running advertisement.
	Update(info *DeviceInfo) error

	// Stop withdraws the advertisement.
	Stop() error
}

// AdvertiserConfig configures an advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface. Empty means
	// all interfaces.
	Interface string

	// TTL overrides the record TTL. Zero keeps the library default.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: DefaultTTL}
}
