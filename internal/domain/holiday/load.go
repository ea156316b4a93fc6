package holiday

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/holidays.yaml
var defaultTable []byte

type tableFile struct {
	Version string              `yaml:"version"`
	Country string              `yaml:"country"`
	Years   map[int][]fileEntry `yaml:"years"`
}

type fileEntry struct {
	Date     string `yaml:"date"`
	Name     string `yaml:"name"`
	Observed bool   `yaml:"observed"`
}

// Default returns the table shipped with the binary.
func Default() (*Table, error) {
	return LoadYAML(bytes.NewReader(defaultTable))
}

func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open holiday file: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadYAML parses a versioned holiday file. Every year listed under `years`
// becomes a supported year, even when its list is empty.
func LoadYAML(r io.Reader) (*Table, error) {
	var file tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode holiday file: %w", err)
	}
	if len(file.Years) == 0 {
		return nil, fmt.Errorf("holiday file %q lists no years", file.Version)
	}

	years := make([]int, 0, len(file.Years))
	var holidays []Holiday
	for year, entries := range file.Years {
		years = append(years, year)
		for _, entry := range entries {
			day, err := ParseDay(strings.TrimSpace(entry.Date))
			if err != nil {
				return nil, err
			}
			if day.Year != year {
				return nil, fmt.Errorf("holiday %s listed under year %d", day, year)
			}
			name := strings.TrimSpace(entry.Name)
			if name == "" {
				return nil, fmt.Errorf("holiday %s has no name", day)
			}
			holidays = append(holidays, Holiday{Date: day, Name: name, Observed: entry.Observed})
		}
	}
	return NewTable(years, holidays...), nil
}
