package keeper

import (
	"encoding/json"
	"testing"

	"cosmossdk.io/log"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/pawamm/app"
)

// SetupTestApp initializes an in-memory engine with default genesis and
// Governor as the governance member.
func SetupTestApp(t testing.TB) (*app.App, sdk.Context) {
	t.Helper()

	testApp, err := app.NewInMemory(log.NewNopLogger(), GenesisTime)
	require.NoError(t, err)
	require.NoError(t, testApp.InitChain(app.NewDefaultGenesisState(Governor.String())))

	return testApp, testApp.NewContext()
}

func mustJSON(t testing.TB, v interface{}) json.RawMessage {
	t.Helper()
	bz, err := json.Marshal(v)
	require.NoError(t, err)
	return bz
}
