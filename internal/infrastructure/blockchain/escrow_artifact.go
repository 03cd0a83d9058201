package blockchain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Escrow contract methods invoked by the backend. The buyer-facing
// depositFunds entrypoint is in the ABI for completeness but is only ever
// called from wallets.
const (
	EscrowMethodRelease = "releaseFundsAfterApprovalPeriod"
	EscrowMethodCancel  = "cancelEscrowAndRefundBuyer"
	EscrowMethodState   = "currentState"
	EscrowMethodAmount  = "escrowAmount"
	EscrowMethodBalance = "getContractBalance"
)

// EscrowABI is the property escrow contract interface, parsed once at
// startup and immutable thereafter.
var EscrowABI = mustParseABI(`[
	{"inputs":[{"internalType":"address","name":"_buyer","type":"address"},{"internalType":"address","name":"_seller","type":"address"},{"internalType":"uint256","name":"_escrowAmount","type":"uint256"},{"internalType":"address","name":"_serviceFeeWallet","type":"address"}],"stateMutability":"nonpayable","type":"constructor"},
	{"inputs":[],"name":"depositFunds","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[],"name":"releaseFundsAfterApprovalPeriod","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"cancelEscrowAndRefundBuyer","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"escrowAmount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"currentState","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getContractBalance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"buyer","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"FundsDeposited","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"seller","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"FundsReleased","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"buyer","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"EscrowCancelled","type":"event"}
]`)

// EscrowBin is the compiled escrow creation bytecode (solc 0.8.26,
// optimizer runs 200).
const EscrowBin = "0x60806040523480156100105760008" +
	"0fd5b50604051610b2e380380610b2e83398101604081905261003191610146565b6001600160a01b03841661005757604051631e4fbdf760e01b81526000600482015260240160405180910390fd5b6001600160a01b03831661007e57604051631e4fbdf760e01b81526000600482015260240160405180910390fd5b816000036100" +
	"9f5760405163162908e360e11b815260040160405180910390fd5b600080546001600160a01b038087166001600160a01b031992831617909255600180548684169083161790556003849055600280549284169290911691909117905560048054600160a81b60ff60a01b19909116905561018a565b80516001600160" +
	"a01b038116811461014157600080fd5b919050565b6000806000806080858703121561015c57600080fd5b6101658561012a565b93506101736020860161012a565b60408601519093506101856060860161012a565b905092959194509250565b610995806101996000396000f3fe60806040526004361061005a5760" +
	"003560e01c8063b69ef8a811610043578063b69ef8a8146100c4578063e3a96cbd146100e7578063f340fa011461010957600080fd5b80630a3b0a4f1461005f5780636f9fb98a14610081575b600080fd5b34801561006b57600080fd5b5061007f61007a366004610810565b61011c565b005b34801561008d576000" +
	"80fd5b50475b6040519081526020015b60405180910390f35b3480156100d057600080fd5b506100d9610215565b604051908152602001610098565b3480156100f357600080fd5b5060045460405160ff9091168152602001610098565b61007f61011736600461083b565b610301565b6001546001600160a01b031633" +
	"146101625760405162461bcd60e51b815260206004820152600e60248201526d37b7363c9037b832b930ba37b960911b60448201526064015b60405180910390fd5b600460ff8216600281111561017957610179610864565b1461019657604051632f8b764160e01b815260040160405180910390fd5b600480546002" +
	"60ff199091161790556001546003546040516001600160a01b039092169181156108fc0291906000818181858888f193505050501580156101e2573d6000803e3d6000fd5b506040518181526001600160a01b038316906000805160206109408339815191529060200160405180910390a25050565b60006002600454" +
	"60ff16600281111561023057610230610864565b0361024e57604051630f2e5b6b60e01b815260040160405180910390fd5b6000546001600160a01b0316331461027957604051637bfa4b9f60e01b815260040160405180910390fd5b60048054600160ff1990911617905560008054600354604051919261916001" +
	"600160a01b03909116916108fc82150291906000818181858888f193505050501580156102c9573d6000803e3d6000fd5b50600080546003546040519081526001600160a01b03909116916000805160206109408339815191529060200160405180910390a250600354919050565b60035434101561032457604051" +
	"63044044a560e21b815260040160405180910390fd5b600080546040513481526001600160a01b03909116907f4e3883c75cc9c752bb1db2e406a822e4a75067ae77ad9a0a4d179f2709b9e1f69060200160405180910390a2600480546001600160a81b0319166001600160a01b0392909216919091176001600160" +
	"a01b0360a01b179055565b80356001600160a01b038116811461080b57600080fd5b919050565b60006020828403121561082257600080fd5b61082b826107f4565b9392505050565b60006020828403121561084d57600080fd5b5035919050565b634e487b7160e01b600052602160045260246000fd5b634e487b" +
	"7160e01b600052601160045260246000fdfe884edad9ce6fa2440d8a54cc123490eb96d2768479d49ff9c7366125a9424364a2646970667358221220c1de4b8f2aa4cf8a77422d05e1b4cd89f3a09e5c7a1f02b4d6ec25983fd1a26464736f6c634300081a0033"

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
