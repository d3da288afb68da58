// internal/app/system/limits/limits.go
package limits

// Request and response size limits shared by the JSON handlers.
const (
	// MaxJSONBody is the largest request body jsonio will decode.
	MaxJSONBody = 1 << 20 // 1 MB

	// DefaultListRows is returned when a list request has no ?limit.
	DefaultListRows = 100

	// MaxListRows caps ?limit on every list endpoint.
	MaxListRows = 200
)
