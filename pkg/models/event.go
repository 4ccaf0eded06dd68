package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Event is a raw PostHog event as decoded from the API. No schema is enforced:
// properties vary by the client library that captured the event, so every
// read goes through an accessor that supplies a typed default.
type Event map[string]interface{}

// Window is a (From, To] range of epoch milliseconds.
type Window struct {
	From int64
	To   int64
}

// Contains reports whether ms falls inside the window. The lower bound is
// exclusive and the upper bound inclusive.
func (w Window) Contains(ms int64) bool {
	return w.From < ms && ms <= w.To
}

func (w Window) String() string {
	return fmt.Sprintf("(%d, %d]", w.From, w.To)
}

// String returns the value at key rendered as a string, or "" when absent.
func (e Event) String(key string) string {
	return stringValue(e[key])
}

// Properties returns the nested properties map, or an empty one.
func (e Event) Properties() Props {
	return mapValue(e["properties"])
}

// Library returns the $lib property identifying the capturing client.
func (e Event) Library() string {
	return e.Properties().String("$lib")
}

// Props is a nested, schemaless property map.
type Props map[string]interface{}

// Raw returns the value at key as-is.
func (p Props) Raw(key string) interface{} {
	return p[key]
}

func (p Props) String(key string) string {
	return stringValue(p[key])
}

// Number returns the numeric value at key, or 0 when absent or not a number.
func (p Props) Number(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	default:
		return 0
	}
}

// Bool returns the boolean value at key, or false.
func (p Props) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Map returns the nested map at key, or an empty one.
func (p Props) Map(key string) Props {
	return mapValue(p[key])
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func mapValue(v interface{}) Props {
	switch m := v.(type) {
	case map[string]interface{}:
		return Props(m)
	case Props:
		return m
	default:
		return Props{}
	}
}
