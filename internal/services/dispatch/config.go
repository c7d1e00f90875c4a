package dispatch

const DefaultMessageTemplate = "Hello! Weather update for {{location}}: {{description}}, Temp: {{temperature}}°C, Humidity: {{humidity}}%."

type Config struct {
	Workers         int
	MessageTemplate string
}

func DefaultConfig() *Config {
	return &Config{
		Workers:         4,
		MessageTemplate: DefaultMessageTemplate,
	}
}
