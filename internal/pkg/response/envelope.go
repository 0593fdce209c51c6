package response

import "github.com/gofiber/fiber/v2"

// Envelope defines the standardized JSON structure for the thin HTTP
// responses outside orchestration traffic: cmd/localgw's health probes and
// invoke-route error responses, and the fiber error handler in
// internal/infrastructure/http. The orchestration
// runtime's own traffic speaks gateway-proxy envelopes (see
// internal/orchestrate/envelope), not this shape.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// builder handles the construction of HTTP probe responses.
type builder struct {
	ctx *fiber.Ctx
}

// New initializes a new response builder, capturing the context once to
// avoid redundant passing in subsequent method calls.
func New(c *fiber.Ctx) *builder {
	return &builder{ctx: c}
}

// OK sends a standardized successful response (HTTP 200).
func (b *builder) OK(response Envelope) error {
	response.Success = true
	response.TraceID, _ = b.ctx.Locals("trace_id").(string)
	return b.ctx.Status(fiber.StatusOK).JSON(response)
}

// ServiceUnavailable sends a standardized failure response (HTTP 503).
func (b *builder) ServiceUnavailable(response Envelope) error {
	response.Success = false
	response.TraceID, _ = b.ctx.Locals("trace_id").(string)
	return b.ctx.Status(fiber.StatusServiceUnavailable).JSON(response)
}
