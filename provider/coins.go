package provider

import (
	"fmt"
	"sort"

	"github.com/marketfall/marketfall"
)

// Coin maps a canonical coin identifier to the identifiers each
// provider understands.
type Coin struct {
	ID        string // canonical identifier (CoinGecko-style slug)
	Symbol    string // ticker symbol, e.g. "BTC"
	PaprikaID string // CoinPaprika identifier, e.g. "btc-bitcoin"
}

// Canonical ID to provider identifiers
var coins = map[string]Coin{
	"bitcoin":          {ID: "bitcoin", Symbol: "BTC", PaprikaID: "btc-bitcoin"},
	"ethereum":         {ID: "ethereum", Symbol: "ETH", PaprikaID: "eth-ethereum"},
	"binancecoin":      {ID: "binancecoin", Symbol: "BNB", PaprikaID: "bnb-binance-coin"},
	"solana":           {ID: "solana", Symbol: "SOL", PaprikaID: "sol-solana"},
	"ripple":           {ID: "ripple", Symbol: "XRP", PaprikaID: "xrp-xrp"},
	"dogecoin":         {ID: "dogecoin", Symbol: "DOGE", PaprikaID: "doge-dogecoin"},
	"cardano":          {ID: "cardano", Symbol: "ADA", PaprikaID: "ada-cardano"},
	"avalanche-2":      {ID: "avalanche-2", Symbol: "AVAX", PaprikaID: "avax-avalanche"},
	"polkadot":         {ID: "polkadot", Symbol: "DOT", PaprikaID: "dot-polkadot"},
	"matic-network":    {ID: "matic-network", Symbol: "MATIC", PaprikaID: "matic-polygon"},
	"chainlink":        {ID: "chainlink", Symbol: "LINK", PaprikaID: "link-chainlink"},
	"uniswap":          {ID: "uniswap", Symbol: "UNI", PaprikaID: "uni-uniswap"},
	"cosmos":           {ID: "cosmos", Symbol: "ATOM", PaprikaID: "atom-cosmos"},
	"litecoin":         {ID: "litecoin", Symbol: "LTC", PaprikaID: "ltc-litecoin"},
	"ethereum-classic": {ID: "ethereum-classic", Symbol: "ETC", PaprikaID: "etc-ethereum-classic"},
	"stellar":          {ID: "stellar", Symbol: "XLM", PaprikaID: "xlm-stellar"},
	"algorand":         {ID: "algorand", Symbol: "ALGO", PaprikaID: "algo-algorand"},
	"near":             {ID: "near", Symbol: "NEAR", PaprikaID: "near-near-protocol"},
	"fantom":           {ID: "fantom", Symbol: "FTM", PaprikaID: "ftm-fantom"},
	"the-sandbox":      {ID: "the-sandbox", Symbol: "SAND", PaprikaID: "sand-the-sandbox"},
	"decentraland":     {ID: "decentraland", Symbol: "MANA", PaprikaID: "mana-decentraland"},
	"aave":             {ID: "aave", Symbol: "AAVE", PaprikaID: "aave-new"},
	"curve-dao-token":  {ID: "curve-dao-token", Symbol: "CRV", PaprikaID: "crv-curve-dao-token"},
	"apecoin":          {ID: "apecoin", Symbol: "APE", PaprikaID: "ape-apecoin"},
	"lido-dao":         {ID: "lido-dao", Symbol: "LDO", PaprikaID: "ldo-lido-dao"},
	"arbitrum":         {ID: "arbitrum", Symbol: "ARB", PaprikaID: "arb-arbitrum"},
	"optimism":         {ID: "optimism", Symbol: "OP", PaprikaID: "op-optimism"},
}

// Resolve looks up the registry entry for a canonical coin identifier.
func Resolve(id string) (Coin, bool) {
	c, ok := coins[id]
	return c, ok
}

// MustResolve is Resolve for coins that are known to exist; it returns
// a typed UNSUPPORTED_COIN error otherwise.
func MustResolve(id string) (Coin, error) {
	c, ok := coins[id]
	if !ok {
		return Coin{}, marketfall.WrapError(marketfall.ErrUnsupportedCoin, fmt.Errorf("coin %q not in registry", id))
	}
	return c, nil
}

// IDs returns all canonical identifiers in the registry, sorted.
func IDs() []string {
	ids := make([]string, 0, len(coins))
	for id := range coins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
