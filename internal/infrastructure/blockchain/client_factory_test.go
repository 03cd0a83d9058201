package blockchain

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/require"
)

func TestNewClientFactory_InitializesMap(t *testing.T) {
	f := NewClientFactory()
	require.NotNil(t, f)
	require.NotNil(t, f.evmClients)
	require.Equal(t, 0, len(f.evmClients))
}

func TestClientFactory_GetEVMClient_InvalidURL(t *testing.T) {
	f := NewClientFactory()
	_, err := f.GetEVMClient("://bad-url")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "failed to create EVM client"))
}

func TestNewEVMClient_InvalidURL(t *testing.T) {
	_, err := NewEVMClient("://bad-url")
	require.Error(t, err)
}

func TestClientFactory_RegisterEVMClient(t *testing.T) {
	f := NewClientFactory()
	const rpcURL = "mock://rpc"
	injected := NewEVMClientWithCallView(big.NewInt(1), func(context.Context, string, []byte) ([]byte, error) {
		return []byte{0x01}, nil
	})

	f.RegisterEVMClient(rpcURL, injected)
	got, err := f.GetEVMClient(rpcURL)
	require.NoError(t, err)
	require.Same(t, injected, got)
}

func TestClientFactory_GetEVMClient_DoubleCheckBranchViaHook(t *testing.T) {
	f := NewClientFactory()
	const rpcURL = "mock://race"
	injected := NewEVMClientWithCallView(big.NewInt(1), func(context.Context, string, []byte) ([]byte, error) {
		return []byte{0x01}, nil
	})

	origHook := beforeGetEVMClientWriteLockHook
	t.Cleanup(func() { beforeGetEVMClientWriteLockHook = origHook })

	beforeGetEVMClientWriteLockHook = func(url string) {
		if url == rpcURL {
			f.RegisterEVMClient(url, injected)
		}
	}

	got, err := f.GetEVMClient(rpcURL)
	require.NoError(t, err)
	require.Same(t, injected, got)
}

func TestClientFactory_GetEVMClient_NewClientSuccessPath(t *testing.T) {
	f := NewClientFactory()
	const rpcURL = "mock://new-client-success"

	origDial := dialEVMClient
	origChainID := getClientChainID
	origBlockNumber := getClientBlockNumber
	t.Cleanup(func() {
		dialEVMClient = origDial
		getClientChainID = origChainID
		getClientBlockNumber = origBlockNumber
	})

	dialEVMClient = func(string) (*ethclient.Client, error) {
		return &ethclient.Client{}, nil
	}
	getClientChainID = func(*ethclient.Client, context.Context) (*big.Int, error) {
		return big.NewInt(1), nil
	}
	getClientBlockNumber = func(*ethclient.Client, context.Context) (uint64, error) {
		return 42, nil
	}

	got, err := f.GetEVMClient(rpcURL)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, int64(1), got.ChainID().Int64())
}

func TestClientFactory_CloseAll(t *testing.T) {
	f := NewClientFactory()
	f.RegisterEVMClient("mock://a", NewEVMClientWithCallView(big.NewInt(1), nil))
	f.RegisterEVMClient("mock://b", NewEVMClientWithCallView(big.NewInt(1), nil))

	f.CloseAll()
	require.Equal(t, 0, len(f.evmClients))
}
