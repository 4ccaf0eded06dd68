package models

// Record is one flat row for a Power BI push dataset. Values are limited to
// string, float64 and bool.
type Record map[string]interface{}

// Shape identifies which destination layout a batch of records uses.
type Shape string

const (
	// ShapeServer is used for events captured by the Node server library.
	ShapeServer Shape = "server"
	// ShapeBrowser is used for everything else (posthog-js and friends).
	ShapeBrowser Shape = "browser"
)

// ServerLibrary is the $lib value that selects ShapeServer.
const ServerLibrary = "posthog-node"

// ShapeForLibrary maps a $lib value to its destination shape.
func ShapeForLibrary(lib string) Shape {
	if lib == ServerLibrary {
		return ShapeServer
	}
	return ShapeBrowser
}

// Kind is the primitive type of a destination column.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
)

// Column describes one destination column.
type Column struct {
	Name string
	Kind Kind
}

// Schema is the ordered column list of a push dataset.
type Schema struct {
	Shape   Shape
	Columns []Column
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Zero returns the default value for a column of kind k.
func (k Kind) Zero() interface{} {
	switch k {
	case KindNumber:
		return float64(0)
	case KindBool:
		return false
	default:
		return ""
	}
}

// SchemaFor returns the destination schema for shape.
func SchemaFor(shape Shape) Schema {
	if shape == ShapeServer {
		return ServerSchema
	}
	return BrowserSchema
}

var ServerSchema = Schema{
	Shape: ShapeServer,
	Columns: []Column{
		{"event", KindString},
		{"caller", KindString},
		{"endpoint", KindString},
		{"level", KindString},
		{"method", KindString},
		{"timestamp_IST", KindString},
		{"timestamp_UTC", KindString},
		{"message", KindString},
		{"userId", KindString},
		{"userRole", KindString},
		{"platform", KindString},
	},
}

var BrowserSchema = Schema{
	Shape: ShapeBrowser,
	Columns: []Column{
		{"id", KindString},
		{"user id", KindString},
		{"session id", KindString},
		{"message", KindString},
		{"insert id", KindString},
		{"library", KindString},
		{"title", KindString},
		{"session timeout (ms)", KindNumber},
		{"page hostname", KindString},
		{"session start time", KindString},
		{"user logged in", KindBool},
		{"first page pathname", KindString},
		{"pathname", KindString},
		{"dead click tracking enabled", KindBool},
		{"current url", KindString},
		{"time", KindString},
		{"first page url", KindString},
		{"user ip address", KindString},
		{"event sent time", KindString},
		{"user city", KindString},
		{"user country", KindString},
		{"user country code", KindString},
		{"user state", KindString},
		{"event name", KindString},
		{"timestamp_IST", KindString},
		{"timestamp_UTC", KindString},
		{"event type", KindString},
		{"clicked_name", KindString},
		{"prev pageview pathname", KindString},
		{"INP input delay (ms)", KindNumber},
		{"INP interaction time", KindNumber},
		{"INP next paint time", KindNumber},
		{"INP presentation delay (ms)", KindNumber},
		{"INP processing duration (ms)", KindNumber},
		{"INP total delay", KindNumber},
		{"INP performance_rating", KindString},
		{"INP event timestamp", KindString},
		{"referrer url", KindString},
		{"CLS shift time", KindNumber},
		{"CLS shift value", KindNumber},
		{"CLS total shift delta", KindNumber},
		{"CLS performance rating", KindString},
		{"CLS timestamp", KindString},
		{"level", KindString},
	},
}
