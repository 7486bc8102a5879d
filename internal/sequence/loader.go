// Package sequence loads scripted event sequences from disk. A file is either
// a bare list of events or an object with an "events" list:
//
//	description: Parade opener
//	events:
//	  - event_type: profile
//	    event_data: Parade
//	  - event_type: cinematic
//	    event_data: Vader_Entrance
package sequence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"droidcore/internal/eventstack"
)

var (
	ErrInvalidName      = errors.New("invalid sequence name")
	ErrSequenceNotFound = errors.New("sequence not found")
	ErrInvalidSequence  = errors.New("invalid sequence")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var extensions = []string{".json", ".yaml", ".yml"}

type file struct {
	Description string               `json:"description" yaml:"description"`
	Events      []eventstack.Pending `json:"events" yaml:"events"`
}

type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads and validates the named sequence. Either every entry parses or
// nothing is returned.
func (l *Loader) Load(name string) ([]eventstack.Event, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	path, ext, err := l.find(name)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence %s: %w", name, err)
	}

	entries, err := decode(raw, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSequence, name, err)
	}

	events := make([]eventstack.Event, 0, len(entries))
	for i, entry := range entries {
		ev, err := eventstack.Parse(string(entry.Kind), entry.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s entry %d: %w", ErrInvalidSequence, name, i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (l *Loader) find(name string) (string, string, error) {
	for _, ext := range extensions {
		path := filepath.Join(l.dir, name+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, ext, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", "", fmt.Errorf("stat sequence %s: %w", name, err)
		}
	}
	return "", "", fmt.Errorf("%w: %q", ErrSequenceNotFound, name)
}

func decode(raw []byte, ext string) ([]eventstack.Pending, error) {
	if ext == ".json" {
		trimmed := strings.TrimSpace(string(raw))
		if strings.HasPrefix(trimmed, "[") {
			var list []eventstack.Pending
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		var f file
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		return f.Events, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var list []eventstack.Pending
		if err := node.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var f file
	if err := node.Decode(&f); err != nil {
		return nil, err
	}
	return f.Events, nil
}

// List returns the names of loadable sequences, sorted.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]struct{})
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !knownExt(ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if !namePattern.MatchString(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func knownExt(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}
