package chain

const erc20ABI = `[{
	"name": "decimals",
	"type": "function",
	"stateMutability": "view",
	"inputs": [],
	"outputs": [{"name": "", "type": "uint8"}]
}, {
	"name": "allowance",
	"type": "function",
	"stateMutability": "view",
	"inputs": [
		{"name": "owner", "type": "address"},
		{"name": "spender", "type": "address"}
	],
	"outputs": [{"name": "", "type": "uint256"}]
}, {
	"name": "approve",
	"type": "function",
	"inputs": [
		{"name": "spender", "type": "address"},
		{"name": "amount", "type": "uint256"}
	],
	"outputs": [{"name": "", "type": "bool"}]
}]`

const disburserABI = `[{
	"name": "batchTransfer",
	"type": "function",
	"inputs": [
		{"name": "token", "type": "address"},
		{"name": "period", "type": "string"},
		{"name": "recipients", "type": "address[]"},
		{"name": "amounts", "type": "uint256[]"}
	],
	"outputs": []
}, {
	"name": "maxBatchSize",
	"type": "function",
	"stateMutability": "view",
	"inputs": [],
	"outputs": [{"name": "", "type": "uint256"}]
}]`
