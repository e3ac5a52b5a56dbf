// Package machineid persists the per-host identity used to distinguish
// fleet members: a random UUID written once to ~/.fleetcron/machine.json
// and reused across restarts (spec §6, "Local files").
package machineid

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type file struct {
	MachineID string `json:"machine_id"`
}

// Load reads machine.json under dir, generating and persisting a new
// MachineID the first time this host runs.
func Load(dir string) (string, error) {
	path := filepath.Join(dir, "machine.json")

	raw, err := os.ReadFile(path)
	if err == nil {
		var f file
		if err := json.Unmarshal(raw, &f); err != nil {
			return "", fmt.Errorf("parse %s: %w", path, err)
		}
		if f.MachineID != "" {
			return f.MachineID, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(file{MachineID: id}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal machine id: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return id, nil
}
