package policy_test

import (
	"testing"

	"github.com/openbmc/ibm-logging/pkg/domain"
	"github.com/openbmc/ibm-logging/pkg/policy"
	"github.com/stretchr/testify/assert"
)

func props(message string, additionalData ...string) domain.PropertyMap {
	p := domain.PropertyMap{"Message": message}
	if len(additionalData) > 0 {
		p["AdditionalData"] = additionalData
	}
	return p
}

func TestResolver_Resolve(t *testing.T) {
	resolver := policy.NewResolver(loadedTable(t))
	table := resolver.Table()

	cases := []struct {
		name       string
		properties domain.PropertyMap
		eventID    string
		message    string
		outcome    policy.Outcome
	}{
		{
			name:       "basic search with no modifier",
			properties: props("xyz.openbmc_project.Error.Test1"),
			eventID:    "ABCD1234", message: "Error ABCD1234",
			outcome: policy.OutcomeSecondPass,
		},
		{
			name:       "inventory path",
			properties: props("xyz.openbmc_project.Error.Test3", "FOO=BAR", "CALLOUT_INVENTORY_PATH=mod2"),
			eventID:    "BBBBBB", message: "Error BBBBBB",
			outcome: policy.OutcomeSecondPass,
		},
		{
			name:       "i2c device path",
			properties: props("xyz.openbmc_project.Error.Test4", "FOO=BAR", "CALLOUT_DEVICE_PATH=/some/i2c/path"),
			eventID:    "DDDDDDDD", message: "Error DDDDDDDD",
			outcome: policy.OutcomeSecondPass,
		},
		{
			name:       "fsi device path",
			properties: props("xyz.openbmc_project.Error.Test4", "FOO=BAR", "CALLOUT_DEVICE_PATH=/some/fsi/path"),
			eventID:    "EEEEEEEE", message: "Error EEEEEEEE",
			outcome: policy.OutcomeSecondPass,
		},
		{
			name:       "procedure in hex",
			properties: props("xyz.openbmc_project.Error.Test5", "FOO=BAR", "PROCEDURE=109"),
			eventID:    "FFFFFFFF", message: "Error FFFFFFFF",
			outcome: policy.OutcomeSecondPass,
		},
		{
			name:       "rail name",
			properties: props("xyz.openbmc_project.Error.Test6", "FOO=BAR", "RAIL_NAME=RAIL_5"),
			eventID:    "GGGGGGGG", message: "Error GGGGGGGG",
			outcome: policy.OutcomeSecondPass,
		},
		{
			name:       "input name",
			properties: props("xyz.openbmc_project.Error.Test7", "FOO=BAR", "INPUT_NAME=INPUT_42"),
			eventID:    "HHHHHHHH", message: "Error HHHHHHHH",
			outcome: policy.OutcomeSecondPass,
		},
		{
			name:       "not found",
			properties: props("hello world"),
			eventID:    table.DefaultEventID(), message: table.DefaultMessage(),
			outcome: policy.OutcomeDefault,
		},
		{
			name:       "strange additional data",
			properties: props("xyz.openbmc_project.Error.Test7", "FOO", "INPUT_NAME="),
			eventID:    table.DefaultEventID(), message: table.DefaultMessage(),
			outcome: policy.OutcomeDefault,
		},
		{
			name:       "device path exact match",
			properties: props("xyz.openbmc_project.Error.Test8", "CALLOUT_DEVICE_PATH=/match/this/path"),
			eventID:    "IIIIIII", message: "Error IIIIIII",
			outcome: policy.OutcomeFirstPass,
		},
		{
			name:       "predictive eSEL matches callout||Warning",
			properties: props(policy.HostEvent, eselBase+sevPredictive, "CALLOUT_INVENTORY_PATH=/inventory/core0"),
			eventID:    "JJJJJJJJ", message: "Error JJJJJJJJ",
			outcome: policy.OutcomeFirstPass,
		},
		{
			name:       "recovered eSEL matches callout||Informational",
			properties: props(policy.HostEvent, eselBase+sevRecovered, "CALLOUT_INVENTORY_PATH=/inventory/core1"),
			eventID:    "KKKKKKKK", message: "Error KKKKKKKK",
			outcome: policy.OutcomeFirstPass,
		},
		{
			name:       "critical eSEL matches callout||Critical",
			properties: props(policy.HostEvent, eselBase+sevCritical, "CALLOUT_INVENTORY_PATH=/inventory/core2"),
			eventID:    "LLLLLLLL", message: "Error LLLLLLLL",
			outcome: policy.OutcomeFirstPass,
		},
		{
			name:       "unrecoverable eSEL matches callout||Critical",
			properties: props(policy.HostEvent, eselBase+sevUnrecov, "CALLOUT_INVENTORY_PATH=/inventory/core3"),
			eventID:    "MMMMMMMM", message: "Error MMMMMMMM",
			outcome: policy.OutcomeFirstPass,
		},
		{
			name:       "diagnostic eSEL matches callout||Critical",
			properties: props(policy.HostEvent, eselBase+sevDiag, "CALLOUT_INVENTORY_PATH=/inventory/core4"),
			eventID:    "NNNNNNNN", message: "Error NNNNNNNN",
			outcome: policy.OutcomeFirstPass,
		},
		{
			name:       "short eSEL still matches the plain callout",
			properties: props(policy.HostEvent, eselBase, "CALLOUT_INVENTORY_PATH=/inventory/core5"),
			eventID:    "OOOOOOOO", message: "Error OOOOOOOO",
			outcome: policy.OutcomeSecondPass,
		},
		{
			name:       "eSEL without UH section still matches the plain callout",
			properties: props(policy.HostEvent, noUHESEL, "CALLOUT_INVENTORY_PATH=/inventory/core5"),
			eventID:    "OOOOOOOO", message: "Error OOOOOOOO",
			outcome: policy.OutcomeSecondPass,
		},
		{
			name:       "bad severity is still critical",
			properties: props(policy.HostEvent, eselBase+"ZZ", "CALLOUT_INVENTORY_PATH=/inventory/core5"),
			eventID:    "PPPPPPPP", message: "Error PPPPPPPP",
			outcome: policy.OutcomeFirstPass,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolver.Resolve(tc.properties)
			assert.Equal(t, tc.eventID, got.EventID)
			assert.Equal(t, tc.message, got.Message)
			assert.Equal(t, tc.outcome, got.Outcome)
		})
	}
}

func TestResolver_MissingMessage(t *testing.T) {
	resolver := policy.NewResolver(loadedTable(t))
	table := resolver.Table()

	for _, p := range []domain.PropertyMap{
		nil,
		{},
		{"AdditionalData": []string{"CALLOUT_INVENTORY_PATH=mod2"}},
		{"Message": ""},
	} {
		got := resolver.Resolve(p)
		assert.Equal(t, table.DefaultEventID(), got.EventID)
		assert.Equal(t, table.DefaultMessage(), got.Message)
		assert.Equal(t, policy.OutcomeDefault, got.Outcome)
	}
}

func TestResolver_BadProcedureIsSkipped(t *testing.T) {
	resolver := policy.NewResolver(loadedTable(t))

	got := resolver.Resolve(props("xyz.openbmc_project.Error.Test5", "PROCEDURE=not-a-number"))
	assert.Equal(t, policy.OutcomeDefault, got.Outcome)
}

func TestResolver_UnloadedTable(t *testing.T) {
	resolver := policy.NewResolver(policy.NewTable(policy.WithDefaults("DEF", "default message")))

	got := resolver.Resolve(props("xyz.openbmc_project.Error.Test1"))
	assert.Equal(t, "DEF", got.EventID)
	assert.Equal(t, "default message", got.Message)
}

func TestResolver_DevicePathFallsBackToBusType(t *testing.T) {
	// The raw device path misses in pass one; pass two reduces it to its bus type.
	resolver := policy.NewResolver(loadedTable(t))

	got := resolver.Resolve(props("xyz.openbmc_project.Error.Test4", "CALLOUT_DEVICE_PATH=/devices/platform/ahb/fsi-master"))
	assert.Equal(t, "EEEEEEEE", got.EventID)
	assert.Equal(t, policy.OutcomeSecondPass, got.Outcome)
}
