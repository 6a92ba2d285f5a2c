package college

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed_colleges.yaml
var defaultSeed []byte

type seedEntry struct {
	CollegeName      string   `yaml:"college_name"`
	Branch           string   `yaml:"branch"`
	CutoffPercentile float64  `yaml:"cutoff_percentile"`
	Category         string   `yaml:"category"`
	Region           string   `yaml:"region"`
	Fees             int64    `yaml:"fees"`
	MedianPackage    float64  `yaml:"median_package"`
	ImageURLs        []string `yaml:"image_urls"`
}

// DefaultSeed returns the catalogue bundled with the binary.
func DefaultSeed() io.Reader { return bytes.NewReader(defaultSeed) }

// LoadSeed decodes a YAML list of colleges.
func LoadSeed(r io.Reader) ([]College, error) {
	var entries []seedEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	out := make([]College, 0, len(entries))
	for i, e := range entries {
		e.CollegeName = strings.TrimSpace(e.CollegeName)
		e.Branch = strings.TrimSpace(e.Branch)
		e.Category = strings.TrimSpace(e.Category)
		e.Region = strings.TrimSpace(e.Region)
		if e.CollegeName == "" || e.Branch == "" {
			return nil, fmt.Errorf("seed entry %d: college_name and branch are required", i)
		}
		if e.CutoffPercentile < 0 || e.CutoffPercentile > 100 {
			return nil, fmt.Errorf("seed entry %d: cutoff_percentile %v out of range", i, e.CutoffPercentile)
		}
		if e.Category == "" {
			e.Category = CategoryOpen
		}
		out = append(out, College{
			CollegeName:      e.CollegeName,
			Branch:           e.Branch,
			CutoffPercentile: e.CutoffPercentile,
			Category:         e.Category,
			Region:           e.Region,
			Fees:             e.Fees,
			MedianPackage:    e.MedianPackage,
			ImageURLs:        EncodeImages(e.ImageURLs),
		})
	}
	return out, nil
}

// Seed inserts items only when the store is empty and returns how many rows
// were written.
func Seed(ctx context.Context, s Store, items []College) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for i, c := range items {
		if _, err := s.Create(ctx, c); err != nil {
			return i, err
		}
	}
	return len(items), nil
}
