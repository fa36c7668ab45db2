// Package http implements NetHawk's HTTP enumeration modules: directory and
// virtual-host fuzzing, robots.txt parsing, and lightweight technology
// fingerprinting, all persisting through module.Store.
package http

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nethawk-io/nethawk/internal/config"
	"github.com/nethawk-io/nethawk/internal/fuzzer"
)

// loadWordlist reads path, one entry per line, skipping blank lines and
// "#"-prefixed comments — the same convention dirb/gobuster wordlists use.
func loadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wordlist %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// fuzzerConfig builds a fuzzer.Config from the `fuzzer` config section,
// shared by the dir and vhost modules.
func fuzzerConfig(cfg *config.Config, extensions []string) (fuzzer.Config, error) {
	wordlistPath := cfg.GetString("fuzzer.wordlist", "")
	var words []string
	if wordlistPath != "" {
		var err error
		words, err = loadWordlist(wordlistPath)
		if err != nil {
			return fuzzer.Config{}, err
		}
	}
	return fuzzer.Config{
		Threads:    cfg.GetInt("fuzzer.threads", 40),
		Wordlist:   words,
		Status:     []int{200, 204, 301, 302, 307, 401, 403},
		Extensions: extensions,
		MaxTries:   cfg.GetInt("fuzzer.max_tries", 3),
		Timeout:    time.Duration(cfg.GetInt("fuzzer.timeout", 10)) * time.Second,
	}, nil
}
