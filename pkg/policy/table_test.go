package policy_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openbmc/ibm-logging/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Find(t *testing.T) {
	table := loadedTable(t)

	t.Run("no modifier", func(t *testing.T) {
		d, ok := table.Find("xyz.openbmc_project.Error.Test2", "")
		require.True(t, ok)
		assert.Equal(t, "XYZ222", d.EventID)
		assert.Equal(t, "Error XYZ222", d.Message)
	})

	t.Run("unknown error", func(t *testing.T) {
		_, ok := table.Find("foo", "")
		assert.False(t, ok)
		_, ok = table.Find("foo", "mod1")
		assert.False(t, ok)
	})

	t.Run("exact modifier", func(t *testing.T) {
		d, ok := table.Find("xyz.openbmc_project.Error.Test3", "mod3")
		require.True(t, ok)
		assert.Equal(t, "CCCCCC", d.EventID)
		assert.Equal(t, "Error CCCCCC", d.Message)
	})

	t.Run("no exact match and no catch-all", func(t *testing.T) {
		_, ok := table.Find("xyz.openbmc_project.Error.Test3", "mod9")
		assert.False(t, ok)
	})

	t.Run("unmatched modifier falls back to catch-all", func(t *testing.T) {
		d, ok := table.Find("xyz.openbmc_project.Error.Test1", "anything")
		require.True(t, ok)
		assert.Equal(t, "ABCD1234", d.EventID)
	})
}

func TestTable_ExactBeatsCatchAll(t *testing.T) {
	table := policy.NewTable()
	err := table.LoadDocument(strings.NewReader(`[
	  {"err":"E", "dtls":[
	    {"CEID":"ANY", "mod":"", "msg":"catch-all"},
	    {"CEID":"EXACT", "mod":"m", "msg":"exact"}
	  ]}
	]`))
	require.NoError(t, err)

	d, ok := table.Find("E", "m")
	require.True(t, ok)
	assert.Equal(t, "EXACT", d.EventID)

	d, ok = table.Find("E", "")
	require.True(t, ok)
	assert.Equal(t, "ANY", d.EventID)
}

func TestTable_YAMLDocument(t *testing.T) {
	table := policy.NewTable()
	err := table.LoadDocument(strings.NewReader(`
- err: xyz.openbmc_project.Error.Yaml
  dtls:
    - CEID: YAML0001
      mod: ""
      msg: From YAML
`))
	require.NoError(t, err)
	assert.True(t, table.IsLoaded())
	assert.Equal(t, 1, table.Len())

	d, ok := table.Find("xyz.openbmc_project.Error.Yaml", "")
	require.True(t, ok)
	assert.Equal(t, "YAML0001", d.EventID)
}

func TestTable_LoadFailures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		table := policy.NewTable()
		err := table.Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.False(t, table.IsLoaded())
	})

	t.Run("malformed document", func(t *testing.T) {
		table := policy.NewTable()
		err := table.Load(writePolicy(t, `[{"err": "x", "dtls": [`))
		assert.Error(t, err)
		assert.False(t, table.IsLoaded())
		assert.Zero(t, table.Len())
	})

	t.Run("incomplete details", func(t *testing.T) {
		table := policy.NewTable()
		err := table.LoadDocument(strings.NewReader(`[{"err":"x","dtls":[{"CEID":"A","msg":"no mod"}]}]`))
		assert.Error(t, err)
		assert.False(t, table.IsLoaded())
	})

	t.Run("failed reload empties a loaded table", func(t *testing.T) {
		table := loadedTable(t)
		require.NotZero(t, table.Len())

		require.Error(t, table.LoadDocument(strings.NewReader("[")))
		assert.False(t, table.IsLoaded())
		_, ok := table.Find("xyz.openbmc_project.Error.Test2", "")
		assert.False(t, ok)
	})
}

func TestTable_Defaults(t *testing.T) {
	table := policy.NewTable()
	assert.Equal(t, policy.FallbackEventID, table.DefaultEventID())
	assert.Equal(t, policy.FallbackMessage, table.DefaultMessage())

	table = policy.NewTable(policy.WithDefaults("BMC0001", "Something broke"))
	assert.Equal(t, "BMC0001", table.DefaultEventID())
	assert.Equal(t, "Something broke", table.DefaultMessage())
}
