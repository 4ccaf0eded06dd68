package etl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/BartekS5/eventsync/pkg/logger"
	"github.com/BartekS5/eventsync/pkg/models"
	"github.com/BartekS5/eventsync/pkg/utils"
)

// TruncationMarker ends every message that was cut to fit the destination.
const TruncationMarker = "..."

// Transformed is the output of one Transform call.
type Transformed struct {
	Shape     models.Shape
	Records   []models.Record
	Truncated int
}

// Transformer maps raw events onto the flat Power BI row layouts.
type Transformer struct {
	MaxLen int
	Marker string
}

func NewTransformer(maxLen int) *Transformer {
	return &Transformer{MaxLen: maxLen, Marker: TruncationMarker}
}

// ShapeFor picks the layout from the $lib of the first event. Windows are
// assumed to hold events from a single library.
func ShapeFor(events []models.Event) models.Shape {
	if len(events) == 0 {
		return models.ShapeBrowser
	}
	return models.ShapeForLibrary(events[0].Library())
}

// Transform converts every event, in order, using the shape chosen by
// ShapeFor. Missing source fields take the column's zero value.
func (t *Transformer) Transform(events []models.Event) Transformed {
	shape := ShapeFor(events)
	schema := models.SchemaFor(shape)
	fields := browserFields
	if shape == models.ShapeServer {
		fields = serverFields
	}

	out := Transformed{Shape: shape, Records: make([]models.Record, 0, len(events))}
	mixed := 0
	for _, e := range events {
		if models.ShapeForLibrary(e.Library()) != shape {
			mixed++
		}

		src := newSource(e)
		msg, cut := Truncate(messageText(src.props.Raw("message")), t.MaxLen, t.Marker)
		if cut {
			out.Truncated++
		}
		src.message = msg

		rec := make(models.Record, len(schema.Columns))
		for _, col := range schema.Columns {
			if get, ok := fields[col.Name]; ok {
				rec[col.Name] = get(src)
			} else {
				rec[col.Name] = col.Kind.Zero()
			}
		}
		out.Records = append(out.Records, rec)
	}

	if mixed > 0 {
		logger.Warnf("%d of %d events come from a different library than the first one; all were shaped as %s", mixed, len(events), shape)
	}
	if out.Truncated > 0 {
		logger.Infof("Truncated %d messages with '%s' suffix for Power BI", out.Truncated, t.Marker)
	}
	return out
}

// Truncate shortens s to exactly maxLen runes ending in marker when it is
// longer than maxLen. Shorter strings are returned unchanged.
func Truncate(s string, maxLen int, marker string) (string, bool) {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s, false
	}
	keep := maxLen - utf8.RuneCountInString(marker)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + marker, true
}

func messageText(v interface{}) string {
	switch m := v.(type) {
	case nil:
		return ""
	case string:
		return m
	case json.Number:
		return m.String()
	case float64:
		return strconv.FormatFloat(m, 'f', -1, 64)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Sprintf("%v", m)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", m)
	}
}

type source struct {
	event   models.Event
	props   models.Props
	inp     models.Props
	cls     models.Props
	message string
}

func newSource(e models.Event) *source {
	props := e.Properties()
	return &source{
		event: e,
		props: props,
		inp:   props.Map("$web_vitals_INP_event"),
		cls:   props.Map("$web_vitals_CLS_event"),
	}
}

type fieldFunc func(s *source) interface{}

func eventStr(key string) fieldFunc {
	return func(s *source) interface{} { return s.event.String(key) }
}

func propStr(key string) fieldFunc {
	return func(s *source) interface{} { return s.props.String(key) }
}

func propNum(key string) fieldFunc {
	return func(s *source) interface{} { return s.props.Number(key) }
}

func propBool(key string) fieldFunc {
	return func(s *source) interface{} { return s.props.Bool(key) }
}

func propIST(key string) fieldFunc {
	return func(s *source) interface{} { return utils.MillisToIST(s.props.Raw(key)) }
}

func message(s *source) interface{} { return s.message }

func timestampIST(s *source) interface{} { return utils.TimestampToIST(s.event.String("timestamp")) }

// Web-vitals columns read from the $web_vitals_*_event maps or their attribution.
func vitalNum(vital func(*source) models.Props, key string) fieldFunc {
	return func(s *source) interface{} { return vital(s).Number(key) }
}

func vitalStr(vital func(*source) models.Props, key string) fieldFunc {
	return func(s *source) interface{} { return vital(s).String(key) }
}

func vitalIST(vital func(*source) models.Props, key string) fieldFunc {
	return func(s *source) interface{} { return utils.MillisToIST(vital(s).Raw(key)) }
}

func inp(s *source) models.Props     { return s.inp }
func inpAttr(s *source) models.Props { return s.inp.Map("attribution") }
func cls(s *source) models.Props     { return s.cls }
func clsAttr(s *source) models.Props { return s.cls.Map("attribution") }

var serverFields = map[string]fieldFunc{
	"event":         eventStr("event"),
	"caller":        propStr("caller"),
	"endpoint":      propStr("endpoint"),
	"level":         propStr("level"),
	"method":        propStr("method"),
	"timestamp_IST": timestampIST,
	"timestamp_UTC": eventStr("timestamp"),
	"message":       message,
	"userId":        propStr("userId"),
	"userRole":      propStr("userRole"),
	"platform":      propStr("$lib"),
}

var browserFields = map[string]fieldFunc{
	"id":                           eventStr("id"),
	"user id":                      eventStr("distinct_id"),
	"session id":                   propStr("$session_id"),
	"message":                      message,
	"insert id":                    propStr("$insert_id"),
	"library":                      propStr("$lib"),
	"title":                        propStr("title"),
	"session timeout (ms)":         propNum("$configured_session_timeout_ms"),
	"page hostname":                propStr("$host"),
	"session start time":           propIST("$sdk_debug_session_start"),
	"user logged in":               propBool("$is_identified"),
	"first page pathname":          propStr("$session_entry_pathname"),
	"pathname":                     propStr("$pathname"),
	"dead click tracking enabled":  propBool("$dead_clicks_enabled_server_side"),
	"current url":                  propStr("$current_url"),
	"time":                         propIST("$time"),
	"first page url":               propStr("$session_entry_url"),
	"user ip address":              propStr("$ip"),
	"event sent time":              propStr("$sent_at"),
	"user city":                    propStr("geoip_city_name"),
	"user country":                 propStr("geoip_country_name"),
	"user country code":            propStr("geoip_country_code"),
	"user state":                   propStr("geoip_subdivision_1_name"),
	"event name":                   eventStr("event"),
	"timestamp_IST":                timestampIST,
	"timestamp_UTC":                eventStr("timestamp"),
	"event type":                   propStr("$event_type"),
	"clicked_name":                 propStr("$el_text"),
	"prev pageview pathname":       propStr("$prev_pageview_pathname"),
	"INP input delay (ms)":         vitalNum(inpAttr, "inputDelay"),
	"INP interaction time":         vitalNum(inpAttr, "interactionTime"),
	"INP next paint time":          vitalNum(inpAttr, "nextPaintTime"),
	"INP presentation delay (ms)":  vitalNum(inpAttr, "presentationDelay"),
	"INP processing duration (ms)": vitalNum(inpAttr, "processingDuration"),
	"INP total delay":              vitalNum(inp, "delta"),
	"INP performance_rating":       vitalStr(inp, "rating"),
	"INP event timestamp":          vitalIST(inp, "timestamp"),
	"referrer url":                 propStr("$referrer"),
	"CLS shift time":               vitalNum(clsAttr, "largestShiftTime"),
	"CLS shift value":              vitalNum(clsAttr, "largestShiftValue"),
	"CLS total shift delta":        vitalNum(cls, "delta"),
	"CLS performance rating":       vitalStr(cls, "rating"),
	"CLS timestamp":                vitalIST(cls, "timestamp"),
	"level":                        propStr("level"),
}
