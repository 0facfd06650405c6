package mode

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/fyrsmithlabs/seoflow/internal/config"
)

// Secrets file diagnostic statuses.
const (
	StatusFileNotFound  = "file_not_found"
	StatusEmptyFile     = "empty_file"
	StatusInvalidFormat = "invalid_format"
	StatusReadError     = "read_error"
	StatusMissingKey    = "missing_key"
	StatusPlaceholder   = "placeholder"
	StatusSuccess       = "success"
	StatusNotChecked    = "not_checked"
)

// maxSecretsFileSize bounds how much of a secrets file is read.
const maxSecretsFileSize = 64 * 1024

// Diagnostics explains what happened when the secrets file was inspected.
type Diagnostics struct {
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	Path         string   `json:"keys_file_path"`
	AbsolutePath string   `json:"absolute_path,omitempty"`
	Details      []string `json:"details,omitempty"`
}

var placeholders = map[string]struct{}{
	"your_claude_api_key_here":    {},
	"your_api_key_here":           {},
	"your_anthropic_api_key_here": {},
	"your_openai_api_key_here":    {},
	"changeme":                    {},
	"replace_me":                  {},
	"<api_key>":                   {},
	"sk-...":                      {},
}

// IsPlaceholder reports whether v is a known stand-in rather than a real key.
func IsPlaceholder(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	if _, ok := placeholders[s]; ok {
		return true
	}
	return strings.HasPrefix(s, "your_") && strings.HasSuffix(s, "_here")
}

// ReadSecretsFile loads the credential for provider from a JSON or TOML
// secrets file. The returned secret is empty unless the status is
// StatusSuccess. Absence of the file is not an error.
func ReadSecretsFile(path, provider string) (config.Secret, Diagnostics) {
	d := Diagnostics{Path: path}
	if abs, err := filepath.Abs(path); err == nil {
		d.AbsolutePath = abs
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			d.Status = StatusFileNotFound
			d.Message = fmt.Sprintf("Keys file not found at %s", d.AbsolutePath)
			return "", d
		}
		return "", readError(d, err)
	}
	if info.IsDir() {
		return "", readError(d, fmt.Errorf("%s is a directory", path))
	}
	if info.Size() == 0 {
		d.Status = StatusEmptyFile
		d.Message = fmt.Sprintf("Keys file exists but is empty: %s", d.AbsolutePath)
		return "", d
	}
	if info.Size() > maxSecretsFileSize {
		return "", readError(d, fmt.Errorf("file too large: %d bytes", info.Size()))
	}

	// #nosec G304 -- path comes from operator configuration
	content, err := os.ReadFile(path)
	if err != nil {
		return "", readError(d, err)
	}

	doc, err := decodeSecrets(path, content)
	if err != nil {
		d.Status = StatusInvalidFormat
		d.Message = "Keys file must contain a JSON or TOML object"
		d.Details = append(d.Details, err.Error())
		return "", d
	}

	key := lookupKey(doc, provider)
	switch {
	case key == "":
		d.Status = StatusMissingKey
		d.Message = fmt.Sprintf("No %s API key found in keys file", provider)
		return "", d
	case IsPlaceholder(key):
		d.Status = StatusPlaceholder
		d.Message = fmt.Sprintf("%s API key in keys file is a placeholder value", provider)
		return "", d
	}

	d.Status = StatusSuccess
	d.Message = "Keys loaded successfully"
	return config.Secret(key), d
}

func readError(d Diagnostics, err error) Diagnostics {
	d.Status = StatusReadError
	d.Message = "Error reading keys file"
	d.Details = append(d.Details, err.Error())
	return d
}

func decodeSecrets(path string, content []byte) (map[string]any, error) {
	doc := map[string]any{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(content), &doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// lookupKey prefers "<provider>_api_key" over "api_key" inside the provider
// section.
func lookupKey(doc map[string]any, provider string) string {
	section, ok := doc[provider].(map[string]any)
	if !ok {
		return ""
	}
	for _, name := range []string{provider + "_api_key", "api_key"} {
		if v, ok := section[name].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
