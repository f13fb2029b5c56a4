package contracts

const storeFragment = `[
	{"name":"computeFinalFee","type":"function","stateMutability":"view","inputs":[{"name":"currency","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"setFinalFee","type":"function","stateMutability":"nonpayable","inputs":[{"name":"currency","type":"address"},{"name":"newFinalFee","type":"uint256"}],"outputs":[]}
]`

const finderFragment = `[
	{"name":"changeImplementationAddress","type":"function","stateMutability":"nonpayable","inputs":[{"name":"interfaceName","type":"bytes32"},{"name":"implementationAddress","type":"address"}],"outputs":[]},
	{"name":"getImplementationAddress","type":"function","stateMutability":"view","inputs":[{"name":"interfaceName","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
]`

// Store is the fee contract registered by the deploy command; Finder is the
// name-to-address registry it is announced in.
var (
	Store  = mustParseABI("store", storeFragment)
	Finder = mustParseABI("finder", finderFragment)
)

// StoreInterfaceName is the bytes32 key the Store is registered under.
var StoreInterfaceName = [32]byte{'S', 't', 'o', 'r', 'e'}
