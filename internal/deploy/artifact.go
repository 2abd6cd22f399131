package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is the subset of a hardhat build artifact needed to deploy.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

type artifactFile struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact reads <dir>/<contract>.json.
func LoadArtifact(dir, contract string) (Artifact, error) {
	path := filepath.Join(dir, contract+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("read artifact %s: %w", contract, err)
	}
	return ParseArtifact(data)
}

// ParseArtifact decodes artifact JSON.
func ParseArtifact(data []byte) (Artifact, error) {
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return Artifact{}, fmt.Errorf("parse artifact: %w", err)
	}
	if len(file.ABI) == 0 {
		return Artifact{}, fmt.Errorf("artifact %s has no abi", file.ContractName)
	}
	parsed, err := abi.JSON(strings.NewReader(string(file.ABI)))
	if err != nil {
		return Artifact{}, fmt.Errorf("parse artifact abi %s: %w", file.ContractName, err)
	}
	code, err := hexutil.Decode(strings.TrimSpace(file.Bytecode))
	if err != nil {
		return Artifact{}, fmt.Errorf("decode bytecode %s: %w", file.ContractName, err)
	}
	if len(code) == 0 {
		return Artifact{}, fmt.Errorf("artifact %s has empty bytecode", file.ContractName)
	}
	return Artifact{ContractName: file.ContractName, ABI: parsed, Bytecode: code}, nil
}
