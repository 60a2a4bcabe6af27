package models

const (
	// DefaultRequestDelay pause after every remote call, in seconds
	DefaultRequestDelay = 5

	// DefaultHTTPTimeout per request timeout, in seconds
	DefaultHTTPTimeout = 10

	// BookedStatusCode embedded status code the service returns for a created booking
	BookedStatusCode = 201

	// DefaultLanguage catalog language parameter
	DefaultLanguage = "en"

	// DefaultHistoryDays attempt rows kept in the history database
	DefaultHistoryDays = 90

	// DefaultTokenKey dotenv key holding the bearer token
	DefaultTokenKey = "GB_TOKEN"
)

const (
	StorageDriverFile   = "file"
	StorageDriverRedis  = "redis"
	StorageDriverSQLite = "sqlite"
	StorageDriverMemory = "memory"
)

const (
	RedisIgnoreKey = "autobook:ignored"
	RedisCrashKey  = "autobook:crash"
)
