// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxJSONBody caps JSON request bodies decoded by httpjson.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxNotifyBody caps payment provider notifications. Only the order id
	// is read from them.
	MaxNotifyBody = 64 << 10 // 64 KB

	// MultipartSlack is allowed on top of the image size for the other
	// fields of a campaign form.
	MultipartSlack = 1 << 20 // 1 MB
)
