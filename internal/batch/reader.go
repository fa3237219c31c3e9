// Package batch reads word lists and submits them one after another
// through a translation session.
package batch

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadBatchFile reads one word or phrase per line. Blank lines and lines
// starting with '#' are skipped; duplicates are kept.
func ReadBatchFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	return words, nil
}
