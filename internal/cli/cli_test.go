package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go-retail-pivot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersCSV = `order_id,status,region,total
SO-1,completed,North,100
SO-2,completed,South,50
SO-3,cancelled,North,20
`

// run executes the root command in a scratch working directory.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func writeOrders(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(ordersCSV), 0644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pivot v"+Version)
}

func TestParseMeasures(t *testing.T) {
	refs, err := parseMeasures([]string{"count", "SUM:total", " average:margin "})
	require.NoError(t, err)
	assert.Equal(t, []model.MeasureRef{
		{Reducer: model.ReducerCount},
		{Reducer: model.ReducerSum, Field: "total"},
		{Reducer: model.ReducerAverage, Field: "margin"},
	}, refs)

	_, err = parseMeasures([]string{"sum"})
	assert.ErrorContains(t, err, "needs a field")
}

func TestBuildCSVOutput(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeOrders(t)

	out, err := run(t, "build", "--csv", path, "--group-by", "status",
		"--measure", "count", "--measure", "sum:total", "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, "Status,Count,Total Sales\ncompleted,2,150\ncancelled,1,20\n", out)
}

func TestBuildTableOutput(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeOrders(t)

	out, err := run(t, "build", "--csv", path, "--group-by", "region,status", "--expand-all")
	require.NoError(t, err)
	assert.Contains(t, out, "▾ North")
	assert.Contains(t, out, "▾ completed")
	assert.Contains(t, out, "SO-1")
	assert.Contains(t, out, "$120.00")
	assert.Contains(t, out, "(8 rows)")

	out, err = run(t, "build", "--csv", path, "--group-by", "region")
	require.NoError(t, err)
	assert.Contains(t, out, "▸ North")
	assert.Contains(t, out, "(2 rows)")
}

func TestBuildJSONOutputAndExport(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "orders.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"records":[
		{"status":"completed","total":10},
		{"status":"pending","total":5},
		{"status":"completed","total":1}
	]}`), 0644))

	out, err := run(t, "build", "--json", path, "-o", "json", "--export")
	require.NoError(t, err)

	var got pivotOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "completed", got.Rows[0].Value)
	assert.Equal(t, 11.0, got.Rows[0].Aggregates["Total Sales"])
	assert.Equal(t, 3, got.Stats.RecordsIn)
	assert.Equal(t, "status", got.Dimensions[0].Key)

	files, err := filepath.Glob(filepath.Join(dir, "exports", "cli", "*.csv"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestBuildRejectsUnknownDimension(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "build", "--csv", writeOrders(t), "--group-by", "colour")
	assert.ErrorContains(t, err, "colour")
}

func TestCatalogCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := run(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Sales")
	assert.Contains(t, out, "sum:total")
	assert.Contains(t, out, "date by month")

	out, err = run(t, "catalog", "-o", "json")
	require.NoError(t, err)
	var cats []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &cats))
	assert.Equal(t, "Order", cats[0]["name"])
}

func TestImportThenBuildFromTable(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeOrders(t)

	out, err := run(t, "import", path, "--database", "sales.db", "--table", "sales")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 records into sales")

	out, err = run(t, "build", "--database", "sales.db", "--table", "sales",
		"--group-by", "region", "--measure", "count", "--measure", "sum:total", "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, "Region,Count,Total Sales\nNorth,2,120\nSouth,1,50\n", out)

	out, err = run(t, "build", "--database", "sales.db", "--table", "sales", "--status", "cancelled",
		"--group-by", "region", "--measure", "count", "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, "Region,Count\nNorth,1\n", out)
}
