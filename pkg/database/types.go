package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// StringArray stores a list of strings in a single text column. It is
// written as a JSON array on every driver and read back from either JSON or
// the PostgreSQL array literal form ({a,"b c"}).
type StringArray []string

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("StringArray: unsupported scan type %T", value)
	}

	switch {
	case strings.HasPrefix(raw, "["):
		return json.Unmarshal([]byte(raw), a)
	case strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}"):
		*a = splitArrayLiteral(raw[1 : len(raw)-1])
	default:
		*a = StringArray{raw}
	}
	return nil
}

// splitArrayLiteral splits the body of a PostgreSQL array literal, honoring
// double quotes and backslash escapes.
func splitArrayLiteral(body string) StringArray {
	out := StringArray{}
	if body == "" {
		return out
	}

	var cur strings.Builder
	quoted, escaped := false, false
	for _, r := range body {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(out, cur.String())
}

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (StringArray) GormDataType() string {
	return "text"
}

// Normalize returns the values trimmed, lower-cased, de-duplicated and
// sorted, dropping empty entries. A nil array stays nil.
func (a StringArray) Normalize() StringArray {
	if a == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(a))
	out := make(StringArray, 0, len(a))
	for _, s := range a {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
