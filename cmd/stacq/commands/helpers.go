package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/stacq-io/stacq/internal/constants"
	"github.com/stacq-io/stacq/internal/logging"
	"github.com/stacq-io/stacq/pkg/stac"
	"github.com/stacq-io/stacq/pkg/stacclient"
)

// Common string constants used throughout the commands package.
const (
	NotAvailable = "N/A"

	// Output formats.
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"

	// JSON formatting.
	defaultJSONIndent = "  "
)

// newClient builds a stac.Client from the resolved configuration.
// Diagnostics always reach stderr: quiet runs still surface capability
// gaps and server quirks as warnings.
func newClient() (stac.Client, error) {
	endpoint := viper.GetString("endpoint")
	if endpoint == "" {
		return nil, constants.ErrNoCatalogConfigured
	}

	level := logging.LevelWarn
	if viper.GetBool("verbose") {
		level = logging.LevelDebug
	}

	logger := logging.New(logging.Config{Level: level, Pretty: true})

	config := &stac.Config{
		Endpoint:         endpoint,
		AccessToken:      viper.GetString("token"),
		RetryMax:         viper.GetInt("retry-max"),
		RetryStatusCodes: []int{502, 503, 504},
		Debug:            viper.GetBool("verbose"),
		Logger:           logger,
		Diagnostics:      stac.LoggerSink{Logger: logger},
	}

	if !viper.GetBool("no-cache") {
		config.Cache = stac.DefaultCacheConfig()
	}

	return stacclient.New(config)
}

// renderStructured writes v as JSON or YAML. It reports false when the
// configured output format is the table default, leaving rendering to
// the caller.
func renderStructured(v any) (bool, error) {
	switch viper.GetString("output") {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", defaultJSONIndent)

		return true, encoder.Encode(v)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return true, encoder.Encode(v)
	default:
		return false, nil
	}
}

// terminalWidth returns the current terminal width, or the default when
// stdout is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return constants.DefaultTerminalWidth
	}

	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return constants.DefaultTerminalWidth
	}

	return width
}

// truncate shortens s to at most width runes, ellipsized.
func truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}

	return s[:width-3] + "..."
}

// parseBBox parses a comma-separated coordinate list.
func parseBBox(value string) ([]float64, error) {
	if value == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	if len(parts) != 4 && len(parts) != 6 {
		return nil, fmt.Errorf("%w: got %d values", constants.ErrInvalidBBox, len(parts))
	}

	bbox := make([]float64, 0, len(parts))

	for _, part := range parts {
		coord, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing bbox coordinate %q: %w", part, err)
		}

		bbox = append(bbox, coord)
	}

	return bbox, nil
}

// itemDatetime extracts the datetime property for display.
func itemDatetime(item *stac.Item) string {
	if item.Properties == nil {
		return NotAvailable
	}

	value, ok := item.Properties["datetime"].(string)
	if !ok || value == "" {
		return NotAvailable
	}

	return value
}
