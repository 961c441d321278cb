package generator

// Config drives the synthetic notification generator.
type Config struct {
	NumNotifications int
	// DuplicateChance is the probability that the next delivery repeats an
	// earlier one verbatim, the way a retrying processor would.
	DuplicateChance float64
	NumAccounts     int
	Currencies      []string
	Seed            int64
}

// DefaultConfig returns baseline settings for load and replay testing.
func DefaultConfig() Config {
	return Config{
		NumNotifications: 1000,
		DuplicateChance:  0.15,
		NumAccounts:      200,
		Currencies:       []string{"USD", "EUR", "GBP", "INR"},
		Seed:             42,
	}
}
