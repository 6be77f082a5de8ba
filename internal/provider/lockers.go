package provider

import "strings"

// lockerPlatforms maps known liquidity-locker contract addresses to the
// platform behind them. Team Finance and Unicrypt deploy the same contracts
// on Ethereum and Base, so the table is keyed by address alone. Launchpads
// that lock through the shared DEX router (DxSale, PinkSale) are omitted:
// the router address alone cannot tell them apart.
var lockerPlatforms = map[string]string{
	// Team Finance
	"0x5a6a4d5445683286c73a6ba4de2c60d1cce2f8e5": "Team Finance",
	"0x87dce67002e66c17bc449efb2992b9a4b6667ab":  "Team Finance",

	// Unicrypt
	"0x663a5c229c09b049e36dcc11a9b0d4a8eb9db214": "Unicrypt",
	"0x17e00383a843a9922bca3b280c0ade9f8ba48449": "Unicrypt",

	// Standalone lockers
	"0x407993575c91ce7643a4d4ccacc9a98c36ee1bbe": "Liquidity Locker",
	"0x1ee3151c7d4c76e2c265ca2882b73b4b3b31470b": "CoinTool",
}

// lockPlatform resolves a locked LP holder's address to its locking
// platform, when known.
func lockPlatform(addr string) (string, bool) {
	platform, ok := lockerPlatforms[strings.ToLower(addr)]
	return platform, ok
}
