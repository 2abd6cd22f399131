package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Deployments maps logical contract names to deployed addresses.
type Deployments map[string]common.Address

// DeploymentsFilename returns the per-chain deployments file name inside dir.
func DeploymentsFilename(dir string, chainID uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d-delta-deployments.json", chainID))
}

// Names returns the recorded names in sorted order.
func (d Deployments) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON writes checksummed hex addresses.
func (d Deployments) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(d))
	for name, addr := range d {
		out[name] = addr.Hex()
	}
	return json.Marshal(out)
}

// UnmarshalJSON validates every address.
func (d *Deployments) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Deployments, len(raw))
	for name, value := range raw {
		value = strings.TrimSpace(value)
		if !common.IsHexAddress(value) {
			return fmt.Errorf("invalid address for %s: %s", name, value)
		}
		out[name] = common.HexToAddress(value)
	}
	*d = out
	return nil
}

// LoadDeployments reads a deployments file. A missing file yields ok=false.
func LoadDeployments(path string) (Deployments, bool, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Deployments{}, false, nil
		}
		return nil, false, fmt.Errorf("stat deployments: %w", err)
	}
	if stat.IsDir() {
		return nil, false, fmt.Errorf("deployments path is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read deployments: %w", err)
	}

	var d Deployments
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, false, fmt.Errorf("parse deployments: %w", err)
	}
	return d, true, nil
}

// SaveDeployments writes the file atomically.
func SaveDeployments(path string, d Deployments) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create deployments dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal deployments: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write deployments tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename deployments: %w", err)
	}
	return nil
}

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}
