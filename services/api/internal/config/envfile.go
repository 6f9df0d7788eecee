package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// .env lookup climbs at most this many directories from the working one.
const envFileSearchDepth = 6

type envVar struct {
	key, value string
	line       int
}

// LoadEnvFile exports the variables of the nearest .env file so that Load
// sees them as ESCROW_* overrides. Variables already present in the process
// environment are left alone. It returns the loaded path, or "" if there
// was no file.
func LoadEnvFile() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for _, dir := range envFileCandidates(wd) {
		path := filepath.Join(dir, ".env")
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("open %s: %w", path, err)
		}
		vars, err := readEnvFile(f)
		_ = f.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		for _, v := range vars {
			if _, set := os.LookupEnv(v.key); set {
				continue
			}
			if err := os.Setenv(v.key, v.value); err != nil {
				return "", fmt.Errorf("%s:%d: %w", path, v.line, err)
			}
		}
		return path, nil
	}
	return "", nil
}

func envFileCandidates(dir string) []string {
	dirs := []string{dir}
	for len(dirs) < envFileSearchDepth {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dirs = append(dirs, parent)
		dir = parent
	}
	return dirs
}

// readEnvFile accepts KEY=VALUE lines, optionally prefixed by "export".
// Comments, blank lines and lines without "=" are skipped.
func readEnvFile(r io.Reader) ([]envVar, error) {
	var vars []envVar
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		text := sc.Text()
		if n == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		text = strings.TrimSpace(text)
		if text == "" || text[0] == '#' {
			continue
		}
		if rest, ok := strings.CutPrefix(text, "export "); ok {
			text = strings.TrimSpace(rest)
		}
		k, v, ok := strings.Cut(text, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		vars = append(vars, envVar{key: k, value: unquote(strings.TrimSpace(v)), line: n})
	}
	return vars, sc.Err()
}

func unquote(v string) string {
	if n := len(v); n >= 2 && (v[0] == '"' || v[0] == '\'') && v[n-1] == v[0] {
		return v[1 : n-1]
	}
	return v
}
