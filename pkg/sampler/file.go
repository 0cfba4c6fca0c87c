package sampler

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// File reads usage samples from a YAML file. Useful for development and for
// feeding exported usage reports through the engine offline.
type File struct {
	path string
}

// NewFile creates a file-backed sampler.
func NewFile(path string) *File {
	return &File{path: path}
}

type sampleFile struct {
	Samples []model.UsageSample `yaml:"samples"`
}

func (f *File) Fetch(_ context.Context) ([]model.UsageSample, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read sample file %s: %w", f.path, err)
	}

	var parsed sampleFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse sample file %s: %w", f.path, err)
	}

	now := time.Now().UTC()
	for i := range parsed.Samples {
		if parsed.Samples[i].ObservedAt.IsZero() {
			parsed.Samples[i].ObservedAt = now
		}
	}
	return parsed.Samples, nil
}
