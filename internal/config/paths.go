package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the resolved absolute directory layout of a run. It is
// the single source of truth for every file path the pipeline touches.
type Paths struct {
	BaseDir      string
	ProcessedDir string
	FeaturedDir  string
	SequencesDir string
	ScalersDir   string
	LogsDir      string
}

// ResolvePaths turns the configured (possibly relative) path layout
// into absolute paths. Relative subdirectories resolve against the
// base directory; a relative base directory resolves against the
// working directory.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	base, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:      base,
		ProcessedDir: resolve(cfg.ProcessedDir),
		FeaturedDir:  resolve(cfg.FeaturedDir),
		SequencesDir: resolve(cfg.SequencesDir),
		ScalersDir:   resolve(cfg.ScalersDir),
		LogsDir:      resolve(cfg.LogsDir),
	}, nil
}

// EnsureDirectories creates every directory in the layout.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.BaseDir, p.ProcessedDir, p.FeaturedDir, p.SequencesDir, p.ScalersDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ProcessedFile returns the local path of a raw input file.
func (p *Paths) ProcessedFile(name string) string {
	return filepath.Join(p.ProcessedDir, name)
}

// FeaturedFile returns the local path of a featured CSV.
func (p *Paths) FeaturedFile(name string) string {
	return filepath.Join(p.FeaturedDir, name)
}

// SequenceFile returns the local path of a sequence chunk file.
func (p *Paths) SequenceFile(name string) string {
	return filepath.Join(p.SequencesDir, name)
}

// ScalerFile returns the local path of a scaler artifact.
func (p *Paths) ScalerFile(name string) string {
	return filepath.Join(p.ScalersDir, name)
}
