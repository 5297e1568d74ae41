package discovery

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeDeviceTXT creates the TXT records for a device.
func EncodeDeviceTXT(info *DeviceInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyDeviceID:    info.DeviceID,
		TXTKeyVendor:      info.Vendor,
		TXTKeyInitialized: "0",
	}
	if info.Initialized {
		txt[TXTKeyInitialized] = "1"
	}
	if info.DebugPort != 0 {
		txt[TXTKeyDebugPort] = strconv.FormatUint(uint64(info.DebugPort), 10)
	}
	return txt
}

// DecodeDeviceTXT parses the TXT records of a device.
func DecodeDeviceTXT(txt TXTRecordMap) (*DeviceInfo, error) {
	info := &DeviceInfo{}

	var ok bool
	if info.DeviceID, ok = txt[TXTKeyDeviceID]; !ok || info.DeviceID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDeviceID)
	}
	if info.Vendor, ok = txt[TXTKeyVendor]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVendor)
	}

	if s, ok := txt[TXTKeyDebugPort]; ok {
		port, err := strconv.ParseUint(s, 10, 16)
		if err != nil || port == 0 {
			return nil, fmt.Errorf("%w: debug port %q", ErrInvalidTXTRecord, s)
		}
		info.DebugPort = uint16(port)
	}

	switch txt[TXTKeyInitialized] {
	case "1":
		info.Initialized = true
	case "0", "":
	default:
		return nil, fmt.Errorf("%w: init %q", ErrInvalidTXTRecord, txt[TXTKeyInitialized])
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXT map to "key=value" strings, sorted by
// key so the encoding is stable.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	result := make([]string, 0, len(txt))
	for _, k := range keys {
		result = append(result, k+"="+txt[k])
	}
	return result
}

// StringsToTXTRecords parses "key=value" strings. Entries without "=" are
// kept as keys with an empty value.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(strs))
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		txt[k] = v
	}
	return txt
}

// ValidateInstanceName checks the DNS label limit.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
