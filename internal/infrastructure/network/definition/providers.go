package networkdefinition

import (
	"fmt"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"
)

const (
	evmNativeAddress    = "0x0000000000000000000000000000000000000000"
	solanaNativeAddress = "11111111111111111111111111111111"
)

// Predefined chain definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Solana = entity.ChainDefinition{
		Chain:                 entity.ChainSOL,
		Name:                  "Solana",
		NativeSymbol:          "SOL",
		NativeAddress:         solanaNativeAddress,
		Decimals:              9,
		ExplorerTxURLTemplate: "https://solscan.io/tx/%s",
		RoutingChainID:        1151111081099710,
		VM:                    entity.VMKindSolana,
		PriceAssetID:          "solana",
		PrimaryRPCURL:         "https://api.mainnet-beta.solana.com",
	}
	Ethereum = entity.ChainDefinition{
		Chain:                 entity.ChainETH,
		Name:                  "Ethereum",
		NativeSymbol:          "ETH",
		NativeAddress:         evmNativeAddress,
		Decimals:              18,
		ExplorerTxURLTemplate: "https://etherscan.io/tx/%s",
		RoutingChainID:        1,
		VM:                    entity.VMKindEVM,
		PriceAssetID:          "ethereum",
		PrimaryRPCURL:         "https://ethereum-rpc.publicnode.com",
	}
	Base = entity.ChainDefinition{
		Chain:                 entity.ChainBASE,
		Name:                  "Base",
		NativeSymbol:          "ETH",
		NativeAddress:         evmNativeAddress,
		Decimals:              18,
		ExplorerTxURLTemplate: "https://basescan.org/tx/%s",
		RoutingChainID:        8453,
		VM:                    entity.VMKindEVM,
		PriceAssetID:          "ethereum",
		PrimaryRPCURL:         "https://1rpc.io/base",
	}
	BSC = entity.ChainDefinition{
		Chain:                 entity.ChainBSC,
		Name:                  "BNB Smart Chain",
		NativeSymbol:          "BNB",
		NativeAddress:         evmNativeAddress,
		Decimals:              18,
		ExplorerTxURLTemplate: "https://bscscan.com/tx/%s",
		RoutingChainID:        56,
		VM:                    entity.VMKindEVM,
		PriceAssetID:          "binancecoin",
		PrimaryRPCURL:         "https://1rpc.io/bnb",
	}
)

// ChainDefinitionProvider serves the static chain table, with optional RPC overrides.
type ChainDefinitionProvider struct {
	defs map[entity.Chain]entity.ChainDefinition
}

var _ port.ChainRegistry = (*ChainDefinitionProvider)(nil)

// NewChainDefinitionProvider creates the provider. rpcOverride may return "" to keep the built-in RPC URL.
func NewChainDefinitionProvider(log port.Logger, rpcOverride func(chain string) string) *ChainDefinitionProvider {
	p := &ChainDefinitionProvider{defs: make(map[entity.Chain]entity.ChainDefinition, len(entity.Chains))}
	for _, def := range []entity.ChainDefinition{Solana, Ethereum, Base, BSC} {
		if rpcOverride != nil {
			if url := rpcOverride(string(def.Chain)); url != "" {
				def.PrimaryRPCURL = url
				log.Debug(fmt.Sprintf("RPC override applied for %s", def.Name), "rpc", url)
			}
		}
		p.defs[def.Chain] = def
	}
	log.Info("ChainDefinitionProvider initialized", "chains", len(p.defs))
	return p
}

// Definition returns the definition of chain. The chain set is closed, so an
// unsupported value can only come from a programming error.
func (p *ChainDefinitionProvider) Definition(chain entity.Chain) entity.ChainDefinition {
	def, ok := p.defs[chain]
	if !ok {
		panic(fmt.Sprintf("networkdefinition: unsupported chain %q", chain))
	}
	return def
}

// All returns every definition in display order.
func (p *ChainDefinitionProvider) All() []entity.ChainDefinition {
	out := make([]entity.ChainDefinition, 0, len(entity.Chains))
	for _, c := range entity.Chains {
		out = append(out, p.defs[c])
	}
	return out
}

// EVM returns the definitions of the EVM chains in display order.
func (p *ChainDefinitionProvider) EVM() []entity.ChainDefinition {
	var out []entity.ChainDefinition
	for _, def := range p.All() {
		if def.VM == entity.VMKindEVM {
			out = append(out, def)
		}
	}
	return out
}
