package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Timestamp is stored as epoch milliseconds so the same schema and range
// comparisons work on both postgres and sqlite.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: time.UnixMilli(t.UnixMilli()).UTC()}
}

func (t Timestamp) Value() (driver.Value, error) {
	return t.UnixMilli(), nil
}

func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		t.Time = time.UnixMilli(v).UTC()
	case int32:
		t.Time = time.UnixMilli(int64(v)).UTC()
	case float64:
		t.Time = time.UnixMilli(int64(v)).UTC()
	case nil:
		t.Time = time.Time{}
	default:
		return fmt.Errorf("timestamp: unsupported column type %T", src)
	}
	return nil
}

// ExpiredAt reports whether an expiry instant has been reached at now.
func (t Timestamp) ExpiredAt(now time.Time) bool {
	return !t.After(now)
}
