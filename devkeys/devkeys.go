// Package devkeys derives the deterministic accounts the protocol fixtures
// run with: a deployer, the protocol fee recipient, a Set manager, a trader,
// and indexed throwaway users, all from a single mnemonic.
package devkeys

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/base/go-bip39"
	hdwallet "github.com/ethereum-optimism/go-ethereum-hdwallet"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TestMnemonic is the canonical insecure dev mnemonic. Never fund it.
const TestMnemonic = "test test test test test test test test test test test junk"

// Key identifies a derivable account.
type Key interface {
	// HDPath is the hierarchical-deterministic derivation path of the key.
	HDPath() string
	// String describes the purpose of the key.
	String() string
}

// Keys resolves a Key to a secret or address.
type Keys interface {
	Secret(key Key) (*ecdsa.PrivateKey, error)
	Address(key Key) (common.Address, error)
}

// Role is a named fixture account with a fixed derivation index.
// The deployer sits at index 0, so it resolves to the well-known first
// account of the standard dev mnemonic.
type Role uint64

const (
	DeployerRole Role = iota
	ProtocolFeeRecipientRole
	ManagerRole
	TraderRole
)

var _ Key = DeployerRole

func (r Role) String() string {
	switch r {
	case DeployerRole:
		return "deployer"
	case ProtocolFeeRecipientRole:
		return "protocol-fee-recipient"
	case ManagerRole:
		return "manager"
	case TraderRole:
		return "trader"
	default:
		return fmt.Sprintf("unknown-role-%d", uint64(r))
	}
}

func (r Role) HDPath() string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", uint64(r))
}

// userKeyOffset keeps indexed users clear of the named roles.
const userKeyOffset = 10

// UserKey is an indexed account for tests that need extra parties beyond the
// named roles.
type UserKey uint64

var _ Key = UserKey(0)

func (k UserKey) String() string {
	return fmt.Sprintf("user-%d", uint64(k))
}

func (k UserKey) HDPath() string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", userKeyOffset+uint64(k))
}

// MnemonicDevKeys derives accounts from a BIP-39 mnemonic with the standard
// Ethereum derivation path scheme.
type MnemonicDevKeys struct {
	w *hdwallet.Wallet
}

var _ Keys = (*MnemonicDevKeys)(nil)

func NewMnemonicDevKeys(mnemonic string) (*MnemonicDevKeys, error) {
	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	return &MnemonicDevKeys{w: w}, nil
}

// NewSaltedDevKeys derives a distinct account universe per salt, for suites
// that must not collide on the same addresses.
func NewSaltedDevKeys(mnemonic string, salt string) (*MnemonicDevKeys, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to create seed: %w", err)
	}
	w, err := hdwallet.NewFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return &MnemonicDevKeys{w: w}, nil
}

func (d *MnemonicDevKeys) Secret(key Key) (*ecdsa.PrivateKey, error) {
	account := accounts.Account{URL: accounts.URL{
		Path: key.HDPath(),
	}}
	priv, err := d.w.PrivateKey(account)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key of path %s (key description: %s): %w", account.URL.Path, key.String(), err)
	}
	return priv, nil
}

func (d *MnemonicDevKeys) Address(key Key) (common.Address, error) {
	secret, err := d.Secret(key)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(secret.PublicKey), nil
}
