package source

import "strings"

// Severity tokens probed in raw log lines, most severe first so a line
// mentioning several levels keeps the strongest one
var levelTokens = []string{
	"FATAL", "CRITICAL", "ERROR", "WARNING", "WARN",
	"NOTICE", "INFO", "DEBUG", "TRACE",
}

// extractLogLevel guesses the severity of an unstructured log line.
// Returns an empty string when no severity token is found.
func extractLogLevel(line string) string {
	upper := strings.ToUpper(line)
	for _, token := range levelTokens {
		if strings.Contains(upper, token) {
			return strings.ToLower(token)
		}
	}
	return ""
}
