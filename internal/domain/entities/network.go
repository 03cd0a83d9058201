package entities

import (
	"regexp"
	"strings"
)

// Network identifies a supported blockchain network
type Network string

const (
	NetworkEthereum  Network = "ethereum"
	NetworkPolygon   Network = "polygon"
	NetworkBSC       Network = "bsc"
	NetworkArbitrum  Network = "arbitrum"
	NetworkOptimism  Network = "optimism"
	NetworkAvalanche Network = "avalanche"
	NetworkFantom    Network = "fantom"
	NetworkSolana    Network = "solana"
	NetworkBitcoin   Network = "bitcoin"
)

// SupportedNetworks returns the closed set of networks deals may reference,
// EVM networks first.
func SupportedNetworks() []Network {
	return []Network{
		NetworkEthereum,
		NetworkPolygon,
		NetworkBSC,
		NetworkArbitrum,
		NetworkOptimism,
		NetworkAvalanche,
		NetworkFantom,
		NetworkSolana,
		NetworkBitcoin,
	}
}

var evmNetworks = map[Network]bool{
	NetworkEthereum:  true,
	NetworkPolygon:   true,
	NetworkBSC:       true,
	NetworkArbitrum:  true,
	NetworkOptimism:  true,
	NetworkAvalanche: true,
	NetworkFantom:    true,
}

// EVM chain ids used when signing transactions.
var evmChainIDs = map[Network]int64{
	NetworkEthereum:  1,
	NetworkPolygon:   137,
	NetworkBSC:       56,
	NetworkArbitrum:  42161,
	NetworkOptimism:  10,
	NetworkAvalanche: 43114,
	NetworkFantom:    250,
}

// Wrapped native token addresses, substituted for route discovery when a
// transfer moves the chain's native asset.
var wrappedNativeTokens = map[Network]string{
	NetworkEthereum:  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	NetworkPolygon:   "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
	NetworkBSC:       "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c",
	NetworkArbitrum:  "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
	NetworkOptimism:  "0x4200000000000000000000000000000000000006",
	NetworkAvalanche: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7",
	NetworkFantom:    "0x21be370D5312f44cB42ce377BC9b8a0cEF1A4C83",
}

// IsSupportedNetwork reports whether n belongs to the closed network set.
func IsSupportedNetwork(n Network) bool {
	if evmNetworks[n] {
		return true
	}
	return n == NetworkSolana || n == NetworkBitcoin
}

// IsEVM reports whether the network speaks the Ethereum JSON-RPC and address
// format.
func (n Network) IsEVM() bool {
	return evmNetworks[n]
}

// ChainID returns the EVM chain id for n, or 0 for non-EVM networks.
func (n Network) ChainID() int64 {
	return evmChainIDs[n]
}

// WrappedNativeToken returns the wrapped native token address for an EVM
// network, or "" when the network has none.
func (n Network) WrappedNativeToken() string {
	return wrappedNativeTokens[n]
}

var (
	evmAddressRe    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	solanaAddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	bitcoinLegacyRe = regexp.MustCompile(`^[13][a-km-zA-HJ-NP-Z1-9]{25,34}$`)
	bitcoinBech32Re = regexp.MustCompile(`^bc1[a-z0-9]{11,87}$`)
)

// DetectNetworkFromAddress infers the network family from the address shape.
// EVM-shaped addresses default to ethereum; the caller may narrow to another
// EVM network when it has more context.
func DetectNetworkFromAddress(address string) (Network, bool) {
	switch {
	case evmAddressRe.MatchString(address):
		return NetworkEthereum, true
	case bitcoinLegacyRe.MatchString(address) || bitcoinBech32Re.MatchString(strings.ToLower(address)):
		return NetworkBitcoin, true
	case solanaAddressRe.MatchString(address):
		return NetworkSolana, true
	default:
		return "", false
	}
}

// ValidAddressForNetwork reports whether address is well-formed for network.
func ValidAddressForNetwork(address string, network Network) bool {
	switch {
	case network.IsEVM():
		return evmAddressRe.MatchString(address)
	case network == NetworkSolana:
		return solanaAddressRe.MatchString(address)
	case network == NetworkBitcoin:
		return bitcoinLegacyRe.MatchString(address) || bitcoinBech32Re.MatchString(strings.ToLower(address))
	default:
		return false
	}
}

// IsCrossChainPair reports whether a deal between the two networks needs the
// bridge pipeline: the networks differ, or either side is non-EVM.
func IsCrossChainPair(buyerNetwork, sellerNetwork Network) bool {
	if buyerNetwork != sellerNetwork {
		return true
	}
	return !buyerNetwork.IsEVM() || !sellerNetwork.IsEVM()
}

// RequiresBridge reports whether moving funds between the two networks needs
// an actual bridge transfer rather than a same-chain escrow movement.
func RequiresBridge(sourceNetwork, targetNetwork Network) bool {
	return sourceNetwork != targetNetwork
}
