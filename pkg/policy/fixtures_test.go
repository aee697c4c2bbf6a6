package policy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openbmc/ibm-logging/pkg/policy"
	"github.com/stretchr/testify/require"
)

// eSEL contents all of the way up to right before the severity byte in
// the UH section.
const eselBase = "ESEL=" +
	"00 00 df 00 00 00 00 20 00 04 07 5a 04 aa 00 00 50 48 00 30 01 00 e5 00 " +
	"00 00 f6 ca c9 da 5b b7 00 00 f6 ca d1 8a 2d e6 42 00 00 08 00 00 00 00 " +
	"00 00 00 00 00 00 00 00 89 00 03 44 89 00 03 44 55 48 00 18 01 00 e5 00 " +
	"13 03 "

const noUHESEL = "ESEL=" +
	"00 00 df 00 00 00 00 20 00 04 07 5a 04 aa 00 00 50 48 00 30 01 00 e5 00 " +
	"00 00 f6 ca c9 da 5b b7 00 00 f6 ca d1 8a 2d e6 42 00 00 08 00 00 00 00 " +
	"00 00 00 00 00 00 00 00 89 00 03 44 89 00 03 44 00 00 00 18 01 00 e5 00 " +
	"13 03 10"

// eSEL severity bytes
const (
	sevRecovered  = "10"
	sevPredictive = "20"
	sevUnrecov    = "40"
	sevCritical   = "50"
	sevDiag       = "60"
)

const policyJSON = `
[
    {
    "dtls":[
      {"CEID":"ABCD1234", "mod":"", "msg":"Error ABCD1234"}
    ],
    "err":"xyz.openbmc_project.Error.Test1"
    },
    {
    "dtls":[
      {"CEID":"XYZ222", "mod":"", "msg":"Error XYZ222"}
    ],
    "err":"xyz.openbmc_project.Error.Test2"
    },
    {
    "dtls":[
      {"CEID":"AAAAAA", "mod":"mod1", "msg":"Error AAAAAA"},
      {"CEID":"BBBBBB", "mod":"mod2", "msg":"Error BBBBBB"},
      {"CEID":"CCCCCC", "mod":"mod3", "msg":"Error CCCCCC"}
    ],
    "err":"xyz.openbmc_project.Error.Test3"
    },
    {
    "dtls":[
      {"CEID":"DDDDDDDD", "mod":"I2C", "msg":"Error DDDDDDDD"},
      {"CEID":"EEEEEEEE", "mod":"FSI", "msg":"Error EEEEEEEE"}
    ],
    "err":"xyz.openbmc_project.Error.Test4"
    },
    {
    "dtls":[
      {"CEID":"FFFFFFFF", "mod":"6D", "msg":"Error FFFFFFFF"}
    ],
    "err":"xyz.openbmc_project.Error.Test5"
    },
    {
    "dtls":[
      {"CEID":"GGGGGGGG", "mod":"RAIL_5", "msg":"Error GGGGGGGG"}
    ],
    "err":"xyz.openbmc_project.Error.Test6"
    },
    {
    "dtls":[
      {"CEID":"HHHHHHHH", "mod":"INPUT_42", "msg":"Error HHHHHHHH"}
    ],
    "err":"xyz.openbmc_project.Error.Test7"
    },
    {
    "dtls":[
      {"CEID":"IIIIIII", "mod":"/match/this/path", "msg":"Error IIIIIII"}
    ],
    "err":"xyz.openbmc_project.Error.Test8"
    },
    {
    "dtls":[
      {"CEID":"JJJJJJJJ", "mod":"/inventory/core0||Warning", "msg":"Error JJJJJJJJ"},
      {"CEID":"KKKKKKKK", "mod":"/inventory/core1||Informational", "msg":"Error KKKKKKKK"},
      {"CEID":"LLLLLLLL", "mod":"/inventory/core2||Critical", "msg":"Error LLLLLLLL"},
      {"CEID":"MMMMMMMM", "mod":"/inventory/core3||Critical", "msg":"Error MMMMMMMM"},
      {"CEID":"NNNNNNNN", "mod":"/inventory/core4||Critical", "msg":"Error NNNNNNNN"},
      {"CEID":"OOOOOOOO", "mod":"/inventory/core5", "msg":"Error OOOOOOOO"},
      {"CEID":"PPPPPPPP", "mod":"/inventory/core5||Critical", "msg":"Error PPPPPPPP"}
    ],
    "err":"org.open_power.Host.Error.Event"
    }
]`

// writePolicy writes content to a policy file in a temp dir and returns its path.
func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func loadedTable(t *testing.T) *policy.Table {
	t.Helper()
	table := policy.NewTable()
	require.NoError(t, table.Load(writePolicy(t, policyJSON)))
	require.True(t, table.IsLoaded())
	return table
}
