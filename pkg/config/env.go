package config

import (
	"bufio"
	"os"
	"strings"
	"sync"
)

var (
	envMu    sync.RWMutex
	envCache = make(map[string]string)
)

// LoadEnvFile reads KEY=VALUE pairs from path into the .env cache. A missing
// file is not an error. Variables already set in the process environment
// always win over the file.
func LoadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	envMu.Lock()
	defer envMu.Unlock()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			envCache[key] = value
		}
	}
	return scanner.Err()
}

// GetEnvValue returns key from the process environment or the .env cache
func GetEnvValue(key string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	envMu.RLock()
	defer envMu.RUnlock()
	return envCache[key]
}

// ExpandEnv replaces ${var} and $var in s using GetEnvValue
func ExpandEnv(s string) string {
	return os.Expand(s, GetEnvValue)
}

// exportEnvCache copies cached .env values into the process environment so
// viper's AutomaticEnv sees them
func exportEnvCache() {
	envMu.RLock()
	defer envMu.RUnlock()
	for key, value := range envCache {
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}

func resetEnvCache() {
	envMu.Lock()
	defer envMu.Unlock()
	envCache = make(map[string]string)
}
