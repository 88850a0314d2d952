// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration. WAFFLE's CoreConfig handles
// ports, TLS, log level and the environment name.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (a replica set; the ledger needs transactions)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: fundhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // How long a sign-in lasts

	// AdminEmails is the comma-separated administrator allow-list.
	AdminEmails string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Public base URL of this service, used for the OAuth callback.
	BaseURL string

	// Image storage: "local" or "s3"
	StorageType      string
	StorageLocalPath string // Local storage directory
	StorageLocalURL  string // URL prefix the local files are served under

	// S3/CloudFront configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageCFURL       string // CloudFront distribution URL
	StorageCFKeyPairID string // CloudFront key pair ID
	StorageCFKeyPath   string // Path to CloudFront private key file

	// Payment provider
	PaymentServerKey  string
	PaymentProduction bool
	PaymentCurrency   string // ISO 4217 code of ledger amounts

	// Capture reconciliation
	ReconcileInterval    time.Duration
	ReconcileMaxAttempts int

	// Donation endpoints are rate limited per client IP.
	CheckoutRatePerMinute int

	// TrustedProxies lists the proxy IPs/CIDRs allowed to set the client
	// address through X-Forwarded-For. Blank trusts none.
	TrustedProxies string

	// Size of the public recent-donations list.
	RecentDonationsLimit int

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string
}
