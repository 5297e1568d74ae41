package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// DeviceState is the persisted configuration of an emulated device.
type DeviceState struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`

	DeviceID    string `json:"device_id"`
	Initialized bool   `json:"initialized"`

	// Mnemonic is the PGP-word mnemonic installed by reset or load.
	Mnemonic string `json:"mnemonic,omitempty"`

	// WordList names the word positions Mnemonic uses: "display" for a
	// reset device, "pgp" for a loaded one. Empty reads as display.
	WordList string `json:"word_list,omitempty"`

	// Pin is the matrix-encoded PIN, empty when PIN protection is off.
	Pin string `json:"pin,omitempty"`

	PassphraseProtection bool   `json:"passphrase_protection,omitempty"`
	Label                string `json:"label,omitempty"`
	Language             string `json:"language,omitempty"`
}

// DeviceStateStore manages persistence of device state to a JSON file.
type DeviceStateStore struct {
	mu   sync.Mutex
	path string
}

// NewDeviceStateStore creates a new device state store.
func NewDeviceStateStore(path string) *DeviceStateStore {
	return &DeviceStateStore{path: path}
}

// Path returns the state file location.
func (s *DeviceStateStore) Path() string { return s.path }

// Save persists the device state to disk.
func (s *DeviceStateStore) Save(state *DeviceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.Version = StateVersion
	state.SavedAt = time.Now()
	return writeJSON(s.path, state, 0600)
}

// Load reads the device state from disk.
// Returns nil, nil if the file doesn't exist (factory state).
func (s *DeviceStateStore) Load() (*DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readJSON[DeviceState](s.path)
}

// Clear removes the state file.
func (s *DeviceStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path)
}

// HostState is the host's record of reset sessions.
type HostState struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`

	Sessions []SessionRecord `json:"sessions,omitempty"`
}

// SessionRecord describes one finished reset session.
type SessionRecord struct {
	SessionID            string    `json:"session_id"`
	DeviceID             string    `json:"device_id,omitempty"`
	Strength             int       `json:"strength"`
	PinProtection        bool      `json:"pin_protection,omitempty"`
	PassphraseProtection bool      `json:"passphrase_protection,omitempty"`
	State                string    `json:"state"`
	Error                string    `json:"error,omitempty"`
	StartedAt            time.Time `json:"started_at"`
	FinishedAt           time.Time `json:"finished_at"`
}

// HostStateStore manages persistence of host state to a JSON file.
type HostStateStore struct {
	mu   sync.Mutex
	path string
}

// NewHostStateStore creates a new host state store.
func NewHostStateStore(path string) *HostStateStore {
	return &HostStateStore{path: path}
}

// Load reads the host state. Returns nil, nil if the file doesn't exist.
func (s *HostStateStore) Load() (*HostState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readJSON[HostState](s.path)
}

// Append adds a session record, keeping at most limit records (0 keeps all).
func (s *HostStateStore) Append(rec SessionRecord, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := readJSON[HostState](s.path)
	if err != nil {
		return err
	}
	if state == nil {
		state = &HostState{}
	}
	state.Sessions = append(state.Sessions, rec)
	if limit > 0 && len(state.Sessions) > limit {
		state.Sessions = state.Sessions[len(state.Sessions)-limit:]
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()
	return writeJSON(s.path, state, 0644)
}

// Clear removes the state file.
func (s *HostStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path)
}

func writeJSON(path string, v any, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

func readJSON[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}

func removeFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
