package shell

import (
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
)

var envRe = regexp.MustCompile(`\$\{([^}{]+)}`)

// ReplaceEnvVars - expand ${VAR} and ${VAR:-default} entries
func ReplaceEnvVars(s string) string {
	return envRe.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]

		var def string
		if i := strings.Index(key, ":-"); i >= 0 {
			key, def = key[:i], key[i+2:]
		}

		if value, ok := os.LookupEnv(key); ok {
			return value
		}

		return def
	})
}

func RunUntilSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	println("exit with signal:", (<-sigs).String())
}
