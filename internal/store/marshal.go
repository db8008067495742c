package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tmerge/internal/ir"
)

// marshalPayload converts a payload to canonical JSON TEXT for storage.
func marshalPayload(p ir.Payload) (string, error) {
	if p == nil {
		p = ir.Payload{}
	}
	data, err := ir.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// marshalKeys converts stable key values to canonical JSON TEXT.
func marshalKeys(k ir.Keys) (string, error) {
	if k == nil {
		k = ir.Keys{}
	}
	data, err := ir.MarshalCanonical(k)
	if err != nil {
		return "", fmt.Errorf("marshal keys: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT. Large integers keep their
// precision.
func unmarshalPayload(data string) (ir.Payload, error) {
	if data == "" || data == "{}" {
		return ir.Payload{}, nil
	}
	var p ir.Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

// unmarshalKeys parses canonical JSON TEXT into stable key values.
func unmarshalKeys(data string) (ir.Keys, error) {
	if data == "" || data == "{}" {
		return ir.Keys{}, nil
	}
	var k ir.Keys
	if err := json.Unmarshal([]byte(data), &k); err != nil {
		return nil, fmt.Errorf("unmarshal keys: %w", err)
	}
	return k, nil
}
