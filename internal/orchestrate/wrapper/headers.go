package wrapper

// Header conventions carried on every invocation (spec §6).
const (
	HeaderCorrelationID      = "X-Correlation-Id"
	HeaderFanOut             = "X-Fan-Out"
	HeaderChildCorrelationID = "X-Child-CorrelationId"
)

// corsHeaders are always attached to gateway responses (spec §6).
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":      "*",
	"Access-Control-Allow-Credentials": "true",
}

const defaultContentType = "application/json"
