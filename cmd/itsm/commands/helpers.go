package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fivetwenty-io/itsm/pkg/itsm"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

const Masked = "***"

// clientConfig builds an adapter config from flags and the viper-backed
// config file. Empty credential fields are filled by the library's own
// resolution chain.
func clientConfig() *itsm.Config {
	cfg := &itsm.Config{
		BaseURL:     viper.GetString("base-url"),
		Email:       viper.GetString("email"),
		APIToken:    viper.GetString("token"),
		Service:     viper.GetString("service"),
		Project:     viper.GetString("project"),
		Space:       viper.GetString("space"),
		ServiceDesk: viper.GetString("service-desk"),
	}

	if viper.GetBool("verbose") {
		cfg.Debug = true
		cfg.Logger = stderrLogger{}
	}

	return cfg
}

// renderStructured writes JSON or YAML output and reports whether it handled
// the format; callers fall through to their table rendering otherwise.
func renderStructured(v interface{}) (bool, error) {
	switch viper.GetString("output") {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return true, encoder.Encode(v)

	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return true, encoder.Encode(v)

	default:
		return false, nil
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}

	return t.Format(time.RFC3339)
}

func formatLabels(labels []string) string {
	return strings.Join(labels, ", ")
}

func truncateCell(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}

// stderrLogger adapts the library's logger contract to the CLI's verbose
// stream.
type stderrLogger struct{}

func (stderrLogger) log(level, msg string, fields map[string]interface{}) {
	parts := make([]string, 0, len(fields))
	for key, value := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}

	fmt.Fprintf(os.Stderr, "%s %s %s\n", level, msg, strings.Join(parts, " "))
}

func (l stderrLogger) Debug(msg string, fields map[string]interface{}) { l.log("DEBUG", msg, fields) }
func (l stderrLogger) Info(msg string, fields map[string]interface{})  { l.log("INFO", msg, fields) }
func (l stderrLogger) Warn(msg string, fields map[string]interface{})  { l.log("WARN", msg, fields) }
func (l stderrLogger) Error(msg string, fields map[string]interface{}) { l.log("ERROR", msg, fields) }
