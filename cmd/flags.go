package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// outputFormats lists the values --format accepts.
var outputFormats = []string{"table", "json", "yaml"}

// OutputFlags provides the --format flag shared by listing commands.
type OutputFlags struct {
	Format string
}

// AddOutputFlags adds --format to cmd.
func AddOutputFlags(cmd *cobra.Command) *OutputFlags {
	flags := &OutputFlags{}
	cmd.Flags().StringVarP(&flags.Format, "format", "f", "table", "Output format (table|json|yaml)")
	AddFlagValidation(cmd, "format", func(format string) error {
		return validateFormat(format, outputFormats)
	})
	return flags
}

func validateFormat(format string, valid []string) error {
	for _, v := range valid {
		if format == v {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %s, must be one of: %s", format, strings.Join(valid, ", "))
}

// DataFlags provides the --data flag of the render command.
type DataFlags struct {
	Data string
}

// AddDataFlags adds --data to cmd.
func AddDataFlags(cmd *cobra.Command) *DataFlags {
	flags := &DataFlags{}
	cmd.Flags().StringVarP(&flags.Data, "data", "d", "", "Template data (inline JSON, or @file.json / @file.yaml)")
	return flags
}

// ParseData decodes the render data. A value starting with @ names a file,
// decoded as YAML when its extension is .yml or .yaml and as JSON otherwise.
func (f *DataFlags) ParseData() (map[string]interface{}, error) {
	data := make(map[string]interface{})
	if f.Data == "" {
		return data, nil
	}

	if !strings.HasPrefix(f.Data, "@") {
		if err := json.Unmarshal([]byte(f.Data), &data); err != nil {
			return nil, fmt.Errorf("invalid JSON in data: %w", err)
		}
		return data, nil
	}

	filename := strings.TrimPrefix(f.Data, "@")
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file %s: %w", filename, err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("invalid YAML in data file %s: %w", filename, err)
		}
	default:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("invalid JSON in data file %s: %w", filename, err)
		}
	}
	if data == nil {
		data = make(map[string]interface{})
	}
	return data, nil
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

// validatingValue rejects a flag value before it is stored.
type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(value string) error {
	if err := v.validator(value); err != nil {
		return err
	}
	return v.Value.Set(value)
}
