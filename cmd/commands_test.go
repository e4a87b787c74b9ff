package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/provenance-cli/internal/config"
	"github.com/sells-group/provenance-cli/internal/market"
	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/store"
	"github.com/sells-group/provenance-cli/internal/update"
	"github.com/sells-group/provenance-cli/internal/valuation"
)

func sqliteConfig(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "cli.db")
	cfg = &config.Config{
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: dsn},
		Resolver: config.ResolverConfig{PageSize: 20, MarketYearWindow: 3, MarketCap: 50},
		Breaker:  config.BreakerConfig{Enabled: true},
	}
	return dsn
}

func run(t *testing.T, cmd *cobra.Command) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetContext(context.TODO())
	})
	err := cmd.RunE(cmd, nil)
	return out.String(), err
}

const vehiclesCSV = `vehicle_id,owner_id,owner_name,make,model,year,sale_price
v1,owner-1,Dana,Porsche,911,1988,"$38,500"
c1,other,,Porsche,911,1986,10000
c2,other,,Porsche,911,1987,12000
c3,other,,Porsche,911,1989,14000
bad,other,,Porsche,911,nope,1
`

func importFixture(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vehicles.csv")
	require.NoError(t, os.WriteFile(path, []byte(vehiclesCSV), 0o644))
	importPath, importSheet = path, ""
	_, err := run(t, importCmd)
	require.NoError(t, err)
}

func TestImportThenResolve(t *testing.T) {
	dsn := sqliteConfig(t)
	importFixture(t)

	st, err := store.NewSQLite(dsn)
	require.NoError(t, err)
	v, err := st.GetVehicle(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "38500", v.SalePrice.Decimal.String())
	_, err = st.GetVehicle(context.Background(), "bad")
	assert.ErrorIs(t, err, model.ErrNotFound)
	require.NoError(t, st.Close())

	provVehicle, provField, provActor, provValue, provURLs, provPlatform = "v1", "sale_price", "owner-1", "", nil, ""
	out, err := run(t, provenanceCmd)
	require.NoError(t, err)

	var resp valuation.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, valuation.StatusOK, resp.Provenance.Status)
	assert.Equal(t, 50, resp.Provenance.Provenance.Confidence)
	assert.True(t, resp.Provenance.Provenance.CanEdit)
	assert.Equal(t, valuation.StatusOK, resp.Market.Status)
	assert.Equal(t, 12000.0, resp.Market.Sample.Mean)
}

func TestEditCommand(t *testing.T) {
	sqliteConfig(t)
	importFixture(t)

	editVehicle, editField, editValue, editActor, editActorName = "v1", "sale_price", "42000", "owner-1", "Dana"
	out, err := run(t, editCmd)
	require.NoError(t, err)

	var res update.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "owner-1", res.Provenance.InsertedBy)
	assert.Equal(t, 1, res.Provenance.EvidenceCount)
	assert.True(t, res.Provenance.Value.Decimal.Equal(decimal.NewFromInt(42000)))

	editActor = "user-2"
	_, err = run(t, editCmd)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	editValue = "lots"
	_, err = run(t, editCmd)
	assert.ErrorContains(t, err, "parse --value")
}

func TestMarketExportCommand(t *testing.T) {
	sqliteConfig(t)
	importFixture(t)

	marketVehicle, marketField = "v1", "sale_price"
	marketOut = filepath.Join(t.TempDir(), "v1.xlsx")
	_, err := run(t, marketExportCmd)
	require.NoError(t, err)

	f, err := xlsx.OpenFile(marketOut)
	require.NoError(t, err)
	assert.NotNil(t, f.Sheet[market.SheetCurve])
	assert.Len(t, f.Sheet[market.SheetComparables].Rows, 4)

	marketVehicle = "c1"
	_, err = run(t, marketExportCmd)
	require.NoError(t, err, "c1 has v1, c2 and c3 as comparables")

	marketVehicle = "missing"
	_, err = run(t, marketExportCmd)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMigrateCommand(t *testing.T) {
	sqliteConfig(t)
	_, err := run(t, migrateCmd)
	require.NoError(t, err)
}

func TestInitEnv_Errors(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "oracle", DatabaseURL: "x"}}
	_, err := initEnv(context.Background(), "resolve")
	assert.ErrorContains(t, err, "store.driver")

	sqliteConfig(t)
	cfg.Resolver.RulesPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = initEnv(context.Background(), "resolve")
	assert.ErrorContains(t, err, "provenance: read rules")
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "oracle"}}
	_, err := initStore(context.Background())
	assert.ErrorContains(t, err, "unsupported store driver")
}

func TestAppEnv_Close_Nil(t *testing.T) {
	assert.NotPanics(t, func() { (&appEnv{}).Close() })
}

func TestInitEnv_LoadsRules(t *testing.T) {
	sqliteConfig(t)
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("provenance:\n  timeline_confidence: 65\n"), 0o644))
	cfg.Resolver.RulesPath = rules
	cfg.Breaker.Enabled = false

	env, err := initEnv(context.Background(), "resolve")
	require.NoError(t, err)
	defer env.Close()
	assert.Same(t, env.Raw, env.Store)
	_, err = env.seeder()
	assert.NoError(t, err)
}
