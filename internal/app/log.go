package app

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

var Logger zerolog.Logger

// GetLogger - base logger with the per module level from the config
func GetLogger(module string) zerolog.Logger {
	if s, ok := modules[module]; ok {
		lvl, err := zerolog.ParseLevel(s)
		if err == nil {
			return Logger.Level(lvl)
		}
		Logger.Warn().Err(err).Caller().Send()
	}

	return Logger
}

// initLogger support:
// - output: stderr, stdout
// - format: empty (autodetect color support), color, json, text
// - level:  disabled, trace, debug, info, warn, error...
func initLogger() {
	var cfg struct {
		Mod map[string]string `yaml:"log"`
	}

	cfg.Mod = modules // defaults

	LoadConfig(&cfg)

	var writer io.Writer

	switch modules["output"] {
	case "stdout":
		writer = os.Stdout
	default:
		writer = os.Stderr
	}

	if format := modules["format"]; format != "json" {
		console := &zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05.000"}

		switch format {
		case "text":
			console.NoColor = true
		case "color":
			console.NoColor = false // useless, but anyway
		default:
			// autodetection if output support color
			console.NoColor = !isatty.IsTerminal(writer.(*os.File).Fd())
		}

		writer = console
	}

	lvl, _ := zerolog.ParseLevel(modules["level"])

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	Logger = zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// modules log levels
var modules = map[string]string{
	"format": "",
	"level":  "info",
	"output": "stderr",
}
