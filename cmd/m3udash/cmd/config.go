package cmd

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/m3udash/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect m3udash configuration",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

Redirect the output to a file to create a configuration template:

  m3udash config dump > .m3udash.yaml

Configuration can be set via:
  - Config file (.m3udash.yaml in $HOME, . or /etc/m3udash)
  - Environment variables (M3UDASH_SERVER_PORT, M3UDASH_STORAGE_BASE_DIR, etc.)
  - Command-line flags (for some options)

Environment variables use the M3UDASH_ prefix and underscores for nesting.
Example: fetch.relay_timeout -> M3UDASH_FETCH_RELAY_TIMEOUT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

const dumpHeader = `# m3udash configuration
#
# Durations: 30s, 1m30s. Sizes: 256MB, 1GB.
# Every key can be overridden with M3UDASH_<SECTION>_<KEY>, for example
# M3UDASH_SERVER_PORT, M3UDASH_STORAGE_BASE_DIR or M3UDASH_FETCH_RELAY_TIMEOUT.

`

// toMap mirrors a config struct as nested maps keyed by mapstructure tag.
// Durations and byte sizes are rendered the way they are written in YAML.
func toMap(v any) map[string]any {
	val := reflect.Indirect(reflect.ValueOf(v))
	out := make(map[string]any, val.NumField())

	for _, f := range reflect.VisibleFields(val.Type()) {
		key, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if key == "" {
			key = f.Name
		}
		field := val.FieldByIndex(f.Index)

		switch x := field.Interface().(type) {
		case time.Duration, config.ByteSize:
			out[key] = fmt.Sprint(x)
		default:
			if field.Kind() == reflect.Struct {
				out[key] = toMap(x)
			} else {
				out[key] = x
			}
		}
	}
	return out
}

func runConfigDump(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	data, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	out := cmd.OutOrStdout()
	if _, err := io.WriteString(out, dumpHeader); err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
