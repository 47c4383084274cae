package hyperliquid

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	signingDomainName     = "Exchange"
	signingDomainVersion  = "1"
	signingChainID        = 1337
	zeroVerifyingContract = "0x0000000000000000000000000000000000000000"

	agentSourceMainnet = "a"
	agentSourceTestnet = "b"
)

// Signer produces the EIP-712 signatures the exchange endpoint requires.
// Actions are hashed into a connection id and signed as an Agent typed
// struct; the exchange recovers the wallet from the signature.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	testnet bool
}

// NewSigner parses a hex private key (with or without 0x prefix).
func NewSigner(hexKey string, testnet bool) (*Signer, error) {
	if len(hexKey) > 1 && hexKey[0:2] == "0x" {
		hexKey = hexKey[2:]
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		testnet: testnet,
	}, nil
}

// Address returns the wallet address derived from the signing key.
func (s *Signer) Address() common.Address { return s.address }

// SignAction signs an exchange action for the given nonce.
func (s *Signer) SignAction(action interface{}, nonce int64) (signatureWire, error) {
	connectionID, err := actionHash(action, nonce)
	if err != nil {
		return signatureWire{}, err
	}

	source := agentSourceMainnet
	if s.testnet {
		source = agentSourceTestnet
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              signingDomainName,
			Version:           signingDomainVersion,
			ChainId:           math.NewHexOrDecimal256(signingChainID),
			VerifyingContract: zeroVerifyingContract,
		},
		Message: map[string]interface{}{
			"source":       source,
			"connectionId": connectionID.Bytes(),
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return signatureWire{}, fmt.Errorf("hash domain: %w", err)
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return signatureWire{}, fmt.Errorf("hash message: %w", err)
	}

	rawData := []byte("\x19\x01")
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, messageHash...)
	digest := crypto.Keccak256Hash(rawData)

	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return signatureWire{}, fmt.Errorf("sign action: %w", err)
	}

	return signatureWire{
		R: hexutil.Encode(sig[:32]),
		S: hexutil.Encode(sig[32:64]),
		V: sig[64] + 27,
	}, nil
}

// actionHash computes the connection id: keccak over the serialized
// action, the nonce, and the no-vault marker byte.
func actionHash(action interface{}, nonce int64) (common.Hash, error) {
	data, err := json.Marshal(action)
	if err != nil {
		return common.Hash{}, fmt.Errorf("marshal action: %w", err)
	}

	buf := make([]byte, 0, len(data)+9)
	buf = append(buf, data...)
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], uint64(nonce))
	buf = append(buf, nonceBytes[:]...)
	buf = append(buf, 0x00) // no vault address

	return crypto.Keccak256Hash(buf), nil
}
