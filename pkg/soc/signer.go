package soc

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs single-owner chunks and postage stamps
type Signer interface {
	Sign(digest []byte) ([]byte, error)
	PublicAddress() ([]byte, error)
}

type defaultSigner struct {
	key *ecdsa.PrivateKey
}

// NewSigner builds a secp256k1 signer from a private key
func NewSigner(key *ecdsa.PrivateKey) Signer {
	return &defaultSigner{key: key}
}

// NewSignerFromSeed builds a deterministic signer from a 32-byte seed
func NewSignerFromSeed(seed []byte) (Signer, error) {
	key, err := crypto.ToECDSA(seed)
	if err != nil {
		return nil, err
	}
	return NewSigner(key), nil
}

// GenerateSigner builds a signer with a random private key
func GenerateSigner() (Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return NewSigner(key), nil
}

func (s *defaultSigner) Sign(digest []byte) ([]byte, error) {
	return crypto.Sign(digest, s.key)
}

func (s *defaultSigner) PublicAddress() ([]byte, error) {
	return crypto.PubkeyToAddress(s.key.PublicKey).Bytes(), nil
}
