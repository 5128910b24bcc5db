package app

import (
	"encoding/json"
	"fmt"

	dextypes "github.com/paw-chain/pawamm/x/dex/types"
	tokentypes "github.com/paw-chain/pawamm/x/token/types"
)

// GenesisState is the engine's genesis, one raw JSON document per module.
type GenesisState map[string]json.RawMessage

// NewDefaultGenesisState returns default module genesis with the given
// bech32 governance members.
func NewDefaultGenesisState(govMembers ...string) GenesisState {
	genesis := make(GenesisState)

	dexGenesis := dextypes.DefaultGenesis()
	dexGenesis.GovMembers = append(dexGenesis.GovMembers, govMembers...)
	genesis[dextypes.ModuleName] = mustMarshalJSON(dexGenesis)

	genesis[tokentypes.ModuleName] = mustMarshalJSON(tokentypes.DefaultGenesis())
	return genesis
}

// DexGenesis decodes the dex section.
func (gs GenesisState) DexGenesis() (dextypes.GenesisState, error) {
	var dexGenesis dextypes.GenesisState
	bz, ok := gs[dextypes.ModuleName]
	if !ok {
		return *dextypes.DefaultGenesis(), nil
	}
	if err := json.Unmarshal(bz, &dexGenesis); err != nil {
		return dextypes.GenesisState{}, fmt.Errorf("decode %s genesis: %w", dextypes.ModuleName, err)
	}
	return dexGenesis, nil
}

// TokenGenesis decodes the token section.
func (gs GenesisState) TokenGenesis() (tokentypes.GenesisState, error) {
	var tokenGenesis tokentypes.GenesisState
	bz, ok := gs[tokentypes.ModuleName]
	if !ok {
		return *tokentypes.DefaultGenesis(), nil
	}
	if err := json.Unmarshal(bz, &tokenGenesis); err != nil {
		return tokentypes.GenesisState{}, fmt.Errorf("decode %s genesis: %w", tokentypes.ModuleName, err)
	}
	return tokenGenesis, nil
}

func mustMarshalJSON(v interface{}) json.RawMessage {
	bz, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return bz
}
