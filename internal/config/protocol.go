package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// Protocol carries the scientific parameters passed through to the
// external tools. The defaults are the values the pipeline was validated
// with; a protocol file overrides them per run.
type Protocol struct {
	// PH is the protonation pH for the preparation wizard.
	PH float64 `yaml:"ph"`
	// Features is the number of pharmacophore features to request.
	Features int `yaml:"features"`
	// SiteDist and PairDist are the site and feature-pair distance
	// thresholds (Å) for hypothesis generation.
	SiteDist float64 `yaml:"site_dist"`
	PairDist float64 `yaml:"pair_dist"`
	// XvolScale, Buffer and Limit shape the excluded-volume shell.
	XvolScale float64 `yaml:"xvol_scale"`
	Buffer    float64 `yaml:"buffer"`
	Limit     float64 `yaml:"limit"`
	// Host is the suite job host spec, e.g. "localhost:1".
	Host string `yaml:"host"`
}

// DefaultProtocol returns the validated defaults.
func DefaultProtocol() Protocol {
	return Protocol{
		PH:        7.4,
		Features:  7,
		SiteDist:  2.0,
		PairDist:  4.0,
		XvolScale: 0.5,
		Buffer:    2.0,
		Limit:     5.0,
		Host:      "localhost:1",
	}
}

// LoadProtocol reads a YAML protocol file over the defaults: fields absent
// from the file keep their default values.
func LoadProtocol(path string) (Protocol, error) {
	p := DefaultProtocol()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, Errorf(err, "read protocol file")
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, Errorf(err, "parse protocol file %s", path)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate rejects parameter values the tools would choke on.
func (p Protocol) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{p.PH > 0 && p.PH < 14, fmt.Sprintf("ph %v out of range", p.PH)},
		{p.Features >= 1, fmt.Sprintf("features must be >= 1, got %d", p.Features)},
		{p.SiteDist > 0, "site_dist must be positive"},
		{p.PairDist > 0, "pair_dist must be positive"},
		{p.XvolScale > 0, "xvol_scale must be positive"},
		{p.Buffer >= 0, "buffer must be >= 0"},
		{p.Limit > 0, "limit must be positive"},
		{p.Host != "", "host is required"},
	}
	for _, c := range checks {
		if !c.ok {
			return Errorf(nil, "protocol: %s", c.msg)
		}
	}
	return nil
}
