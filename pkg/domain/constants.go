package domain

// Well-known bus names, paths and interfaces.
const (
	LoggingPath      = "/xyz/openbmc_project/logging"
	LoggingEntryPath = LoggingPath + "/entry"

	LoggingInterface      = "xyz.openbmc_project.Logging.Entry"
	AssociationsInterface = "org.openbmc.Associations"
	AssetInterface        = "xyz.openbmc_project.Inventory.Decorator.Asset"
	PolicyInterface       = "com.ibm.Logging.Policy"
	CalloutInterface      = "com.ibm.Logging.Callout"
)

// Logging.Entry property names.
const (
	PropMessage        = "Message"
	PropTimestamp      = "Timestamp"
	PropAdditionalData = "AdditionalData"
	PropAssociations   = "associations"
)

// AdditionalData keys consulted by the policy resolver.
const (
	KeyCalloutDevicePath    = "CALLOUT_DEVICE_PATH"
	KeyCalloutInventoryPath = "CALLOUT_INVENTORY_PATH"
	KeyRailName             = "RAIL_NAME"
	KeyInputName            = "INPUT_NAME"
	KeyProcedure            = "PROCEDURE"
	KeyESEL                 = "ESEL"
)

// CalloutAssociation is the forward type of an association that calls out
// an inventory object.
const CalloutAssociation = "callout"
