package entity

import (
	"fmt"
	"strings"
)

// Chain is one of the supported bridge chains.
type Chain string

const (
	ChainSOL  Chain = "SOL"
	ChainETH  Chain = "ETH"
	ChainBASE Chain = "BASE"
	ChainBSC  Chain = "BSC"
)

// Chains lists the supported chains in display order.
var Chains = []Chain{ChainSOL, ChainETH, ChainBASE, ChainBSC}

// Valid reports whether c is one of the supported chains.
func (c Chain) Valid() bool {
	switch c {
	case ChainSOL, ChainETH, ChainBASE, ChainBSC:
		return true
	}
	return false
}

// ParseChain accepts a chain code in any case.
func ParseChain(s string) (Chain, error) {
	c := Chain(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", &ValidationError{Field: "chain", Reason: fmt.Sprintf("unsupported chain %q", s)}
	}
	return c, nil
}

// VMKind is the execution environment of a chain, used for address validation.
type VMKind string

const (
	VMKindEVM    VMKind = "evm"
	VMKindSolana VMKind = "svm"
)

// ChainDefinition holds the static configuration of a supported chain.
type ChainDefinition struct {
	Chain        Chain  `json:"chain"`
	Name         string `json:"name"`
	NativeSymbol string `json:"nativeSymbol"`
	// NativeAddress is the token identifier the routing provider uses for the native asset.
	NativeAddress string `json:"nativeAddress"`
	Decimals      int32  `json:"decimals"`
	// ExplorerTxURLTemplate takes the transaction reference as its only verb.
	ExplorerTxURLTemplate string  `json:"explorerTxUrlTemplate"`
	RoutingChainID        uint64  `json:"routingChainId"`
	VM                    VMKind  `json:"vm"`
	PriceAssetID          AssetID `json:"priceAssetId"`
	PrimaryRPCURL         string  `json:"-"`
}

// ExplorerTxURL renders the explorer link for a transaction reference.
func (d ChainDefinition) ExplorerTxURL(txRef string) string {
	if d.ExplorerTxURLTemplate == "" || txRef == "" {
		return ""
	}
	return fmt.Sprintf(d.ExplorerTxURLTemplate, txRef)
}
