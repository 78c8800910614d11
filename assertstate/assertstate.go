// Package assertstate is a test helper for diffing a dagrunner RunState's
// stored task results against an expected JSON shape. It has no part in
// the scheduler core; it exists so tests and examples can assert on
// state.Results using a jd-based JSON diff instead of field-by-field
// comparisons.
package assertstate

import (
	"encoding/json"
	"fmt"
	"strings"

	jd "github.com/josephburnett/jd/lib"
)

// EqualJSON compares state.Results (or any JSON-marshalable value) against
// expectedJSON, skipping any path listed in skip. The comparison is a
// structural JSON diff, not a string or field-by-field match.
func EqualJSON(actual interface{}, expectedJSON string, skip ...string) error {
	actualBytes, err := json.Marshal(actual)
	if err != nil {
		return fmt.Errorf("assertstate: marshal actual: %w", err)
	}

	expectation, err := jd.ReadJsonString(expectedJSON)
	if err != nil {
		return fmt.Errorf("assertstate: read expected json: %w", err)
	}
	parsedActual, err := jd.ReadJsonString(strings.ReplaceAll(string(actualBytes), "\\r\\n", "\\n"))
	if err != nil {
		return fmt.Errorf("assertstate: read actual json: %w", err)
	}

	diff := expectation.Diff(parsedActual)
	if len(diff) == 0 {
		return nil
	}

	skipSet := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		skipSet[s] = struct{}{}
	}

	for _, d := range diff {
		if len(d.Path) == 0 {
			return fmt.Errorf("assertstate: mismatch. expected %v, got %v", d.OldValues, d.NewValues)
		}
		path := d.Path[len(d.Path)-1]
		if _, skipped := skipSet[path.Json()]; skipped {
			continue
		}
		return fmt.Errorf("assertstate: mismatch at path %v. expected %v, got %v", d.Path, d.OldValues, d.NewValues)
	}
	return nil
}
