package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// snowflakeEpoch is the service epoch in unix milliseconds (2015-01-01).
const snowflakeEpoch int64 = 1420070400000

// Snowflake is a 64-bit chat service identifier.
// The API sends snowflakes as decimal strings; bare numbers are accepted too.
type Snowflake int64

// ParseSnowflake parses a decimal snowflake.
func ParseSnowflake(value string) (Snowflake, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", value, err)
	}
	return Snowflake(id), nil
}

func (s Snowflake) String() string {
	return strconv.FormatInt(int64(s), 10)
}

// Valid reports whether the snowflake identifies something (> 0).
func (s Snowflake) Valid() bool {
	return s > 0
}

// Time returns the creation time encoded in the snowflake.
func (s Snowflake) Time() time.Time {
	ms := (int64(s) >> 22) + snowflakeEpoch
	return time.UnixMilli(ms)
}

// MarshalJSON encodes the snowflake as a quoted decimal string.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalJSON accepts "123", 123 and null.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			*s = 0
			return nil
		}
		id, err := ParseSnowflake(raw)
		if err != nil {
			return err
		}
		*s = id
		return nil
	}
	id, err := ParseSnowflake(string(data))
	if err != nil {
		return err
	}
	*s = id
	return nil
}

// SnowflakePtr returns a pointer to id, or nil when id is not valid.
func SnowflakePtr(id int64) *Snowflake {
	if id <= 0 {
		return nil
	}
	value := Snowflake(id)
	return &value
}
