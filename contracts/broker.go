package contracts

// On-chain broker wrappers. The V2 broker computes the corrective trade and
// swaps atomically in one transaction; the V3 broker forwards a sqrt price
// target to the swap router. Both support pulling funds from the caller
// (tradingAsEOA) or spending their own balance.

const v2BrokerFragment = `[
	{"name":"swapToPrice","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"tradingAsEOA","type":"bool"},
		{"name":"uniswapRouter","type":"address"},
		{"name":"uniswapFactory","type":"address"},
		{"name":"swappedTokens","type":"address[2]"},
		{"name":"truePriceTokens","type":"uint256[2]"},
		{"name":"maxSpendTokens","type":"uint256[2]"},
		{"name":"to","type":"address"},
		{"name":"deadline","type":"uint256"}
	],"outputs":[]}
]`

const v3BrokerFragment = `[
	{"name":"swapToPrice","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"tradingAsEOA","type":"bool"},
		{"name":"pool","type":"address"},
		{"name":"swapRouter","type":"address"},
		{"name":"sqrtRatioTargetX96","type":"uint160"},
		{"name":"to","type":"address"},
		{"name":"deadline","type":"uint256"}
	],"outputs":[]}
]`

var (
	V2Broker = mustParseABI("uniswap v2 broker", v2BrokerFragment)
	V3Broker = mustParseABI("uniswap v3 broker", v3BrokerFragment)
)
