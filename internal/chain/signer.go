package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
)

// SignerConfig selects where the signing key comes from. PrivateKey wins
// over Keystore when both are set.
type SignerConfig struct {
	PrivateKey string
	Keystore   string
	Passphrase string
}

// LoadKey resolves the configured private key. When a keystore is used
// without a passphrase, the passphrase is read from the terminal.
func LoadKey(cfg SignerConfig) (*ecdsa.PrivateKey, error) {
	if hexKey := strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"); hexKey != "" {
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return key, nil
	}
	if cfg.Keystore == "" {
		return nil, fmt.Errorf("private key or keystore is required")
	}

	data, err := os.ReadFile(cfg.Keystore)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	passphrase := cfg.Passphrase
	if passphrase == "" {
		passphrase, err = readPassphrase()
		if err != nil {
			return nil, err
		}
	}

	key, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return key.PrivateKey, nil
}

// NewTransactOpts builds EIP-155 transact options for key on chainID.
func NewTransactOpts(key *ecdsa.PrivateKey, chainID uint64) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	return opts, nil
}

func readPassphrase() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("keystore passphrase is required when stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Keystore passphrase: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(raw), nil
}
