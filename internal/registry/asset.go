package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID names a supported reserve token.
type AssetID string

const (
	AssetRMAV AssetID = "rMAV"
	AssetRFRA AssetID = "rFRA"
)

var (
	// ErrUnknownAsset is returned when an asset identifier is not registered.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrUnknownNetwork is returned for chain IDs or names without a registry entry.
	ErrUnknownNetwork = errors.New("unknown network")
	// ErrMissingContract is returned when a network lacks a required contract address.
	ErrMissingContract = errors.New("missing contract address")
)

// Asset is an immutable token definition. Identity is Address.
type Asset struct {
	ID        AssetID        `json:"id"`
	Address   common.Address `json:"address"`
	Symbol    string         `json:"symbol"`
	Name      string         `json:"name"`
	Decimals  uint8          `json:"decimals"`
	LendAPY   float64        `json:"lend_apy"`
	BorrowAPY float64        `json:"borrow_apy"`
}

// ParseAssetID maps user input onto a known asset identifier.
func ParseAssetID(input string) (AssetID, error) {
	trimmed := strings.TrimSpace(input)
	for _, id := range []AssetID{AssetRMAV, AssetRFRA} {
		if strings.EqualFold(trimmed, string(id)) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAsset, input)
}
