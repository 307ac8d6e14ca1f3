package constants

import "time"

// Well-known mints
const (
	// NativeSentinelMint is the system program id some token lists use for the
	// native coin. Backends expect the wrapped mint instead.
	NativeSentinelMint = "11111111111111111111111111111111"
	WrappedSOLMint     = "So11111111111111111111111111111111111111112"
	USDCMint           = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	// SolarTokenMint is the designated token traded on the Solar DEX (Eclipse).
	SolarTokenMint = "CwrZKtPiZJrAK3tTjNPP22rD9VzeoxQv8iHd6EeyNoze"
)

// Default endpoints
const (
	DefaultSolanaRPCURL      = "https://api.mainnet-beta.solana.com"
	DefaultEclipseRPCURL     = "https://mainnetbeta-rpc.eclipse.xyz"
	DefaultSolarBaseURL      = "https://api.solarstudios.co"
	DefaultDeserializeURL    = "https://api.deserialize.xyz"
	DefaultJupiterTokensURL  = "https://token.jup.ag/strict"
	DefaultRelayerURL        = "http://localhost:3000"
	DefaultSolarTokenListURL = DefaultSolarBaseURL + "/mint/list"
	DefaultDeserializeTokens = DefaultDeserializeURL + "/tokenList"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwapEvents    = "swaps:events"
	PubSubChannelAttemptPrefix = "swaps:attempt:"
)

// Limits
const (
	// DedicatedAmmDecimals is the fixed scale applied to human amounts on the
	// dedicated AMM path regardless of the token's real decimals.
	DedicatedAmmDecimals = 9

	MaxSubmitAttempts     = 3
	DefaultSlippageBps    = 50
	DefaultPriorityFee    = 300000 // micro-lamports per compute unit
	DefaultMaxPriorityFee = 1000000
	DefaultQuoteTTL       = 2 * time.Minute
	DefaultConfirmTimeout = 60 * time.Second
	ConfirmInitialBackoff = 500 * time.Millisecond
	ConfirmMaxBackoff     = 4 * time.Second
	SubmitRetryBackoff    = 500 * time.Millisecond
	EventSubscriberBuffer = 64
)

// Token mint addresses to symbols, used as a fallback label when the
// catalog has not been loaded.
var TokenSymbols = map[string]string{
	WrappedSOLMint: "SOL",
	USDCMint:       "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "JUP",
	SolarTokenMint: "SOLAR",
}
