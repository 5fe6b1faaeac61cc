// internal/app/system/limits/limits.go
package limits

// Request body size limits. Direct messages are capped at 2000 characters,
// so no JSON body needs more than a few kilobytes of headroom.
const (
	// MaxJSONBody bounds every JSON request body.
	MaxJSONBody = 64 << 10 // 64 KB

	// MaxTaskBody bounds task create/edit bodies, which carry markdown.
	MaxTaskBody = 256 << 10 // 256 KB
)
