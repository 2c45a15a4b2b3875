package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./openshelf.db"

	// DefaultCartCapacity is the maximum number of concurrent cart entries per user
	DefaultCartCapacity = 5

	// DefaultLoanDays is the loan duration applied when a request omits one
	DefaultLoanDays = 7
)
