package docstore

// Config selects and configures the document store backend.
type Config struct {
	// Backend is one of memory, sql, consul.
	Backend string `mapstructure:"backend" default:"sql"`
	// Consul configures the consul backend.
	Consul ConsulConfig `mapstructure:"consul"`
}
