package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/openbmc/ibm-logging/pkg/domain"
	"github.com/openbmc/ibm-logging/pkg/policy"
)

// PolicyLookup prints the table record for errorID and modifier.
func PolicyLookup(w io.Writer, table *policy.Table, errorID, modifier string) error {
	if !table.IsLoaded() {
		return fmt.Errorf("policy table is not loaded")
	}
	details, ok := table.Find(errorID, modifier)
	if !ok {
		return fmt.Errorf("no policy for error %q with modifier %q", errorID, modifier)
	}
	fmt.Fprintf(w, "CEID: %s\nMessage: %s\nModifier: %q\n", details.EventID, details.Message, details.Modifier)
	return nil
}

// PolicyResolve runs the resolver on a synthetic entry and prints the result.
func PolicyResolve(w io.Writer, resolver *policy.Resolver, message string, additionalData []string) {
	if additionalData == nil {
		additionalData = []string{}
	}
	res := resolver.Resolve(domain.PropertyMap{
		domain.PropMessage:        message,
		domain.PropAdditionalData: additionalData,
	})
	fmt.Fprintf(w, "CEID: %s\nMessage: %s\nOutcome: %s\n", res.EventID, res.Message, res.Outcome)
}

// PolicyCondense converts a full policy table at in to the condensed form at
// out. An empty out writes to w. Skipped error names are reported on w.
func PolicyCondense(w io.Writer, in, out string, indent bool) error {
	src, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("failed to open policy table: %w", err)
	}
	defer src.Close()

	dst := w
	var f *os.File
	if out != "" {
		f, err = os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		dst = f
	}

	skipped, err := policy.Condense(src, dst, indent)
	if f != nil {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to write %s: %w", out, cerr)
		}
	}
	if err != nil {
		return err
	}

	if out != "" {
		for _, name := range skipped {
			fmt.Fprintf(w, "Skipping non-BMC error %q\n", name)
		}
	}
	return nil
}
