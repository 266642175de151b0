package reddit

import (
	"strconv"
	"time"
)

// Timestamp decodes the epoch-seconds floats reddit uses for created_utc and friends.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte(`0`), nil
	}
	return []byte(strconv.FormatInt(t.Time.Unix(), 10)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) (err error) {
	str := string(data)

	// suspended accounts and unedited things carry null or false instead of a time
	if str == "null" || str == "false" {
		return
	}

	f, err := strconv.ParseFloat(str, 64)
	if err == nil {
		if f > 0 {
			t.Time = time.Unix(int64(f), 0).UTC()
		}
	} else {
		t.Time, err = time.Parse(`"`+time.RFC3339+`"`, str)
	}
	return
}

func (t Timestamp) Equal(u Timestamp) bool {
	return t.Time.Equal(u.Time)
}
