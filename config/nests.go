package config

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// LoadNestLayout reads nest zones from a CSV file with the header
// x,y,radius,class,capacity.
func LoadNestLayout(path string) ([]NestConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening nest layout: %w", err)
	}
	defer f.Close()

	var nests []NestConfig
	if err := gocsv.UnmarshalFile(f, &nests); err != nil {
		return nil, fmt.Errorf("parsing nest layout %s: %w", path, err)
	}
	return nests, nil
}

// WriteNestLayout writes nest zones as CSV.
func WriteNestLayout(path string, nests []NestConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating nest layout: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&nests, f); err != nil {
		return fmt.Errorf("writing nest layout: %w", err)
	}
	return nil
}
