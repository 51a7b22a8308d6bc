package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"prepkit/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold .prepkit.yaml and the custom rules directory",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

// configTemplate is written instead of config.Save so the scaffolded file
// keeps its comments.
const configTemplate = `# prepkit configuration. Every key is optional; delete what you do not need.
name: prepkit
version: "0.4.0"

docs:
  # Directories scanned for *.md notes.
  roots:
    - .
  # Glob patterns skipped during the scan.
  ignore: []
  readme: README.md

lint:
  # Severity that makes prepkit lint exit non-zero: error, warning, info.
  fail_on: error
  # When set, snippet languages outside this list are flagged.
  allowed_langs: []
  # Per-rule overrides, e.g.
  #   rules:
  #     snippet-language:
  #       severity: info
  #     roadmap-overlap:
  #       disabled: true
  rules: {}
  plugins_dir: .prepkit/rules
  plugin_timeout: 5s

links:
  # External link checking is off unless enabled here or with --online.
  online: false
  timeout: 10s
  concurrency: 8
  exclude_hosts: []

store:
  database_path: .prepkit/index.db
  cache_dir: .prepkit

search:
  limit: 20
  cache_size: 256
  cache_ttl: 5m

watch:
  debounce: 500ms

logging:
  # debug, info, warn, error
  level: info
  # json or text
  format: text
  file: ""
`

// sampleRule is a working custom rule dropped into .prepkit/rules. Edit or
// delete it freely; every *.go file in that directory is loaded on each run.
const sampleRule = `// Flags TODO markers left in section bodies. Custom rules are plain Go
// interpreted at lint time: define
//
//	func CheckNote(noteJSON string) (string, error)
//
// and return a JSON array of {rule, severity, line, message, detail}.
package main

import (
	"encoding/json"
	"strings"
)

func CheckNote(noteJSON string) (string, error) {
	var n map[string]interface{}
	if err := json.Unmarshal([]byte(noteJSON), &n); err != nil {
		return "", err
	}
	var out []map[string]interface{}
	sections, _ := n["sections"].([]interface{})
	for _, raw := range sections {
		sec, _ := raw.(map[string]interface{})
		body, _ := sec["body"].(string)
		line, _ := sec["line"].(float64)
		for i, text := range strings.Split(body, "\n") {
			if strings.Contains(text, "TODO") {
				out = append(out, map[string]interface{}{
					"severity": "info",
					"line":     int(line) + 1 + i,
					"message":  "section body contains a TODO",
				})
			}
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
`

const storeGitignore = "index.db\nindex.db-journal\n"

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", cfgPath)
	}

	if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// Scaffold next to the config file so --config works from anywhere.
	rulesDir := filepath.Join(filepath.Dir(cfgPath), config.DefaultConfig().Lint.PluginsDir)
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	samplePath := filepath.Join(rulesDir, "todo.go")
	if _, err := os.Stat(samplePath); os.IsNotExist(err) {
		if err := os.WriteFile(samplePath, []byte(sampleRule), 0o644); err != nil {
			return fmt.Errorf("failed to write sample rule: %w", err)
		}
	}
	ignorePath := filepath.Join(filepath.Dir(rulesDir), ".gitignore")
	if _, err := os.Stat(ignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(ignorePath, []byte(storeGitignore), 0o644); err != nil {
			return fmt.Errorf("failed to write .gitignore: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "wrote %s\n", cfgPath)
	fmt.Fprintf(out, "wrote %s (sample custom rule)\n", samplePath)
	fmt.Fprintln(out, "next: prepkit lint")
	return nil
}
