package yolo

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadNames reads class names, one per line. The line index is the class id;
// blank lines are skipped without consuming an id.
func LoadNames(path string) (map[int]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class names: %w", err)
	}
	defer file.Close()

	names := make(map[int]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names[len(names)] = name
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class names: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no class names in %s", path)
	}
	return names, nil
}

// ParseNames reads the Ultralytics "names" metadata entry, a dict literal such
// as {0: 'plane', 1: "small vehicle"}. Entries with a non-numeric key are skipped.
func ParseNames(raw string) (map[int]string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "{"), "}")

	var entries []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case quote == 0 && (ch == '\'' || ch == '"'):
			quote = ch
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && ch == ',':
			entries = append(entries, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(ch)
	}
	if cur.Len() > 0 {
		entries = append(entries, cur.String())
	}

	names := make(map[int]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		names[id] = strings.Trim(strings.TrimSpace(value), "'\"")
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no class names in metadata %q", raw)
	}
	return names, nil
}
