package helpers

import "encoding/json"

// ToJsonString renders v as JSON for log output. Marshal failures
// collapse to "{}" so logging never errors.
func ToJsonString[T any](v T) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}

	return string(b)
}
