package entity

// PortfolioError describes a per-chain failure while loading on-chain holdings.
// A load with some PortfolioErrors still returns the holdings of the chains that answered.
type PortfolioError struct {
	WalletAddress string `json:"walletAddress"`
	Chain         Chain  `json:"chain"`
	NativeSymbol  string `json:"nativeSymbol"`
	Message       string `json:"message"`
}
