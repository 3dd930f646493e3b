// internal/platform/config/help.go
package config

import (
	"fmt"
	"sort"
	"strings"
)

// ExamplesText ejemplos mostrados por `argus --help`.
const ExamplesText = `  Collect a domain with the default collectors:
    argus collect example.com

  Only run the web collector and write results to ./out:
    argus collect https://example.com --collectors web -o out

  Certificate and Wayback history for a domain:
    argus collect example.com --collectors certs,archive

  Username lookup with a short task timeout, JSON only:
    argus collect johndoe -T 45s -q

  Serve the HTTP API backed by PostgreSQL:
    ARGUS_STORAGE_DSN=postgres://argus@localhost/argus argus serve --storage postgres`

// EnvHelp lista las variables de entorno reconocidas.
func EnvHelp(cfg Config) string {
	vars := []string{
		"LOG_LEVEL", "CONFIG",
		"MAX_PARALLEL", "COLLECTOR_TIMEOUT", "TASK_TIMEOUT", "RESULT_TTL",
		"FUZZY", "LSH_THRESHOLD",
		"RESILIENCE_MAX_RETRIES", "RESILIENCE_BACKOFF_BASE", "RESILIENCE_CB_ENABLED", "RESILIENCE_CB_THRESHOLD",
		"COMPLIANCE_ENABLED", "COMPLIANCE_BLOCKED", "COMPLIANCE_ALLOW_PRIVATE",
		"STORAGE_DRIVER", "STORAGE_DSN", "BROADCAST_DRIVER", "AMQP_URL", "AMQP_EXCHANGE",
		"ARCHIVE_ENABLED", "ARCHIVE_BUCKET", "ARCHIVE_PREFIX", "ARCHIVE_REGION", "ARCHIVE_ENDPOINT",
		"ARCHIVE_ACCESS_KEY", "ARCHIVE_SECRET_KEY",
		"OUTPUT_DIR", "OUTPUT_TABLE_DISABLED", "SERVER_ADDR",
	}

	var b strings.Builder
	b.WriteString("ENVIRONMENT:\n")
	for _, v := range vars {
		fmt.Fprintf(&b, "  %s%s\n", EnvPrefix, v)
	}

	names := make([]string, 0, len(cfg.Collectors))
	for name := range cfg.Collectors {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("\nPER-COLLECTOR (ENABLED, PRIORITY, TIMEOUT, RETRIES, RATELIMIT):\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %sCOLLECTORS_%s_*\n", EnvPrefix, strings.ToUpper(name))
	}

	return b.String()
}
