package policy

// Severity is the classification decoded from an eSEL user header.
type Severity string

const (
	SeverityInformational Severity = "Informational"
	SeverityWarning       Severity = "Warning"
	SeverityCritical      Severity = "Critical"
)

const (
	// The user header starts 48 header units into the string, where each
	// unit is four characters of the space separated hex dump.
	uhOffset = 48 * 4

	// "UH"
	uhEyecatcher = "55 48"

	// The severity is the 11th byte of the section; a byte is "BB ".
	uhSeverityOffset = 10 * 3
)

// ESELSeverity decodes the severity from a space separated hex dump of an
// eSEL. It returns false when the data is too short or has no user header.
// A severity type other than 1 or 2 is Critical, including garbage.
func ESELSeverity(data string) (Severity, bool) {
	if len(data) <= uhOffset+uhSeverityOffset {
		return "", false
	}

	if data[uhOffset:uhOffset+len(uhEyecatcher)] != uhEyecatcher {
		return "", false
	}

	// Only the high nibble is the severity type.
	switch data[uhOffset+uhSeverityOffset] {
	case '1':
		return SeverityInformational, true
	case '2':
		return SeverityWarning, true
	default:
		return SeverityCritical, true
	}
}
