// Package contracts carries hand-trimmed ABI fragments for the external
// contracts the broker talks to: ERC-20 tokens, the Uniswap V2 pair/factory/
// router, the V3 pool/swap-router/position-manager, the on-chain broker
// wrappers and the Store fee contract. Only the methods this repository
// actually calls are included; full artifacts (with bytecode, for
// deployment) are loaded from disk at run time.
package contracts

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

func mustParseABI(name, fragment string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(fragment))
	if err != nil {
		panic(fmt.Sprintf("contracts: invalid %s ABI fragment: %v", name, err))
	}
	return parsed
}

// Artifact is the subset of a compiler artifact (hardhat/forge style) needed
// to deploy a contract.
type Artifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact reads a compiler artifact from disk and returns its parsed
// ABI together with the creation bytecode.
func LoadArtifact(path string) (abi.ABI, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, nil, fmt.Errorf("read artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return abi.ABI{}, nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}

	parsed, err := abi.JSON(strings.NewReader(string(artifact.ABI)))
	if err != nil {
		return abi.ABI{}, nil, fmt.Errorf("parse artifact ABI %s: %w", path, err)
	}

	bytecode := strings.TrimPrefix(artifact.Bytecode, "0x")
	if bytecode == "" {
		return abi.ABI{}, nil, fmt.Errorf("artifact %s carries no bytecode", path)
	}
	bin, err := hex.DecodeString(bytecode)
	if err != nil {
		return abi.ABI{}, nil, fmt.Errorf("decode artifact bytecode %s: %w", path, err)
	}
	return parsed, bin, nil
}
