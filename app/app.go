package app

import (
	"encoding/json"
	"fmt"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"

	dexkeeper "github.com/paw-chain/pawamm/x/dex/keeper"
	dextypes "github.com/paw-chain/pawamm/x/dex/types"
	tokenkeeper "github.com/paw-chain/pawamm/x/token/keeper"
	tokentypes "github.com/paw-chain/pawamm/x/token/types"
)

// DefaultBlockInterval is the block time step used by NextBlock.
const DefaultBlockInterval = 5 * time.Second

// App hosts the AMM engine: a commit multistore with the dex and token
// stores mounted side by side, plus the block header calls execute under.
type App struct {
	logger log.Logger
	cms    storetypes.CommitMultiStore
	header cmtproto.Header

	keys map[string]*storetypes.KVStoreKey

	TokenKeeper tokenkeeper.Keeper
	DexKeeper   *dexkeeper.Keeper
}

// New creates an App backed by db, starting at height 1 and genesisTime.
func New(logger log.Logger, db dbm.DB, genesisTime time.Time) (*App, error) {
	keys := storetypes.NewKVStoreKeys(dextypes.StoreKey, tokentypes.StoreKey)

	cms := store.NewCommitMultiStore(db, logger, metrics.NewNoOpMetrics())
	for _, key := range keys {
		cms.MountStoreWithDB(key, storetypes.StoreTypeIAVL, db)
	}
	if err := cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}

	tokenKeeper := tokenkeeper.NewKeeper(keys[tokentypes.StoreKey])
	dexKeeper := dexkeeper.NewKeeper(keys[dextypes.StoreKey], tokenKeeper)

	return &App{
		logger:      logger,
		cms:         cms,
		header:      cmtproto.Header{ChainID: "pawamm", Height: 1, Time: genesisTime.UTC()},
		keys:        keys,
		TokenKeeper: tokenKeeper,
		DexKeeper:   dexKeeper,
	}, nil
}

// NewInMemory creates an App over a fresh MemDB.
func NewInMemory(logger log.Logger, genesisTime time.Time) (*App, error) {
	return New(logger, dbm.NewMemDB(), genesisTime)
}

// NewContext returns a context for the current block. Writes go straight
// to the working state of the multistore.
func (a *App) NewContext() sdk.Context {
	return sdk.NewContext(a.cms, a.header, false, a.logger)
}

// InitChain loads genesis into the stores and commits it.
func (a *App) InitChain(genesis GenesisState) error {
	ctx := a.NewContext()

	tokenGenesis, err := genesis.TokenGenesis()
	if err != nil {
		return err
	}
	if err := a.TokenKeeper.InitGenesis(ctx, tokenGenesis); err != nil {
		return err
	}

	dexGenesis, err := genesis.DexGenesis()
	if err != nil {
		return err
	}
	if err := a.DexKeeper.InitGenesis(ctx, dexGenesis); err != nil {
		return err
	}

	a.Commit()
	return nil
}

// ExportGenesis dumps the current state of every module.
func (a *App) ExportGenesis() (GenesisState, error) {
	ctx := a.NewContext()
	genesis := make(GenesisState)

	dexGenesis, err := a.DexKeeper.ExportGenesis(ctx)
	if err != nil {
		return nil, err
	}
	genesis[dextypes.ModuleName] = mustMarshalJSON(dexGenesis)

	tokenGenesis, err := a.TokenKeeper.ExportGenesis(ctx)
	if err != nil {
		return nil, err
	}
	genesis[tokentypes.ModuleName] = mustMarshalJSON(tokenGenesis)
	return genesis, nil
}

// Commit persists the working state as a new version.
func (a *App) Commit() storetypes.CommitID {
	return a.cms.Commit()
}

// NextBlock ends and commits the current block and advances the header by
// n blocks of DefaultBlockInterval each.
func (a *App) NextBlock(n int64) {
	if err := a.DexKeeper.EndBlocker(a.NewContext()); err != nil {
		a.logger.Error("end block failed", "height", a.header.Height, "error", err)
	}
	a.Commit()
	a.header.Height += n
	a.header.Time = a.header.Time.Add(time.Duration(n) * DefaultBlockInterval)
}

// Height returns the current block height.
func (a *App) Height() int64 { return a.header.Height }

// BlockTime returns the current block time.
func (a *App) BlockTime() time.Time { return a.header.Time }

// CheckInvariants runs every dex invariant against the current state.
func (a *App) CheckInvariants() error {
	if msg, broken := dexkeeper.AllInvariants(*a.DexKeeper)(a.NewContext()); broken {
		return fmt.Errorf("invariant broken: %s", msg)
	}
	return nil
}

// MarshalGenesis renders genesis as indented JSON.
func MarshalGenesis(genesis GenesisState) ([]byte, error) {
	return json.MarshalIndent(genesis, "", "  ")
}
