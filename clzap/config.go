package clzap

import "go.uber.org/zap/zapcore"

// Config configures the logging package.
type Config struct {
	// Level configures the minimum logging level that will be captured.
	Level zapcore.Level `env:"LEVEL" envDefault:"info"`
	// FxLevel configures the level at which fx lifecycle events are logged.
	FxLevel zapcore.Level `env:"FX_LEVEL" envDefault:"debug"`
	// Outputs configures the zap outputs that will be opened for logging.
	Outputs []string `env:"OUTPUTS" envDefault:"stderr"`
	// DevelopmentEncodingConfig switches to zap's development encoder config.
	DevelopmentEncodingConfig bool `env:"DEVELOPMENT_ENCODING_CONFIG"`
	// ConsoleEncoding switches from json to console encoding, useful when running the CLI in a terminal.
	ConsoleEncoding bool `env:"CONSOLE_ENCODING"`
}
