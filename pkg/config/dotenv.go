package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// LoadDotEnv imports KEY=VALUE lines from path into the process environment.
// Lines that do not split into exactly two parts around "=" are skipped, as
// are blank lines and # comments. A missing file imports nothing.
// Variables already set are not overwritten.
func LoadDotEnv(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	imported := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "=")
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(strings.TrimPrefix(parts[0], "export "))
		if key == "" {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, strings.Trim(strings.TrimSpace(parts[1]), `"'`)); err != nil {
			return imported, fmt.Errorf("failed to set %s: %w", key, err)
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return imported, nil
}
