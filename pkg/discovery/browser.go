package discovery

import (
	"context"
	"time"
)

// Browser finds devices on the local network.
type Browser interface {
	// Browse streams devices as they are found. The channel closes when ctx
	// is done or the browser is stopped. Entries for the same instance are
	// merged, so each device is sent once.
	Browse(ctx context.Context) (<-chan *DeviceService, error)

	// FindByDeviceID returns the first device with the given ID.
	FindByDeviceID(ctx context.Context, deviceID string) (*DeviceService, error)

	// Stop ends all active browsing.
	Stop()
}

// BrowserConfig configures a browser.
type BrowserConfig struct {
	// BrowseTimeout bounds FindByDeviceID and CollectDevices when the
	// caller's context has no deadline.
	BrowseTimeout time.Duration

	// Interface restricts browsing to one network interface.
	Interface string
}

// DefaultBrowserConfig returns the default configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{BrowseTimeout: BrowseTimeout}
}

// CollectDevices browses until ctx is done or the timeout elapses and
// returns every device seen.
func CollectDevices(ctx context.Context, b Browser, timeout time.Duration) ([]*DeviceService, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	var devices []*DeviceService
	for svc := range results {
		devices = append(devices, svc)
	}
	return devices, nil
}
