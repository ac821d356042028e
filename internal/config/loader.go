package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default job file name.
const DefaultConfigFile = ".sitescrape"

var (
	// ErrConfigNotFound is returned when the job file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidPattern is returned for an ignore or follow pattern that
	// path.Match cannot evaluate.
	ErrInvalidPattern = errors.New("invalid URL pattern")
)

// LoadConfigFile reads a job file. Unknown keys are rejected so that a
// misspelled setting such as "maxpage" does not silently fall back to the
// default. An empty file is a valid, empty job file.
//
// If the file does not exist, it returns ErrConfigNotFound; callers decide
// whether that is an error depending on whether the path was given explicitly.
func LoadConfigFile(filePath string) (*File, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	if len(cf.Selectors) > 0 {
		if err := cf.Selectors.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", filePath, ErrInvalidSelectors, err)
		}
	}

	if err := checkPatterns(cf.Defaults); err != nil {
		return nil, fmt.Errorf("%s: defaults: %w", filePath, err)
	}

	// Hosts are matched case-insensitively.
	sites := make(map[string]SiteConfig, len(cf.Sites))
	for host, site := range cf.Sites {
		if err := checkPatterns(site); err != nil {
			return nil, fmt.Errorf("%s: sites.%s: %w", filePath, host, err)
		}
		sites[strings.ToLower(host)] = site
	}
	cf.Sites = sites

	return &cf, nil
}

// checkPatterns reports the first malformed glob in site.
func checkPatterns(site SiteConfig) error {
	for _, p := range append(append([]string{}, site.IgnorePatterns...), site.FollowPatterns...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	return nil
}

// FindConfigFile returns the job file to use, or "" if there is none.
//
// An explicit configPath is used only if it exists. Otherwise .sitescrape is
// looked up in the current directory and then in the home directory.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return ""
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
