package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp marshals as RFC3339 and re-hydrates from either an RFC3339
// string or the epoch-millisecond numbers older clients persisted with
// Date.now(). A string that survives deserialization as a string instead
// of a time value is a bug in the caller, not a tolerated variant.
type Timestamp struct {
	time.Time
}

func Now() Timestamp {
	return Timestamp{time.Now().UTC()}
}

func At(t time.Time) Timestamp {
	return Timestamp{t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
		t.Time = parsed.UTC()
		return nil
	}
	var millis float64
	if err := json.Unmarshal(data, &millis); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", string(data), err)
	}
	t.Time = time.UnixMilli(int64(millis)).UTC()
	return nil
}
