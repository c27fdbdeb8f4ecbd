package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
)

// Roster is the YAML file drawctl reads:
//
//	participants: [Ana, Bruno, Carla]
//	exclusions:
//	  - [Ana, Bruno]
type Roster struct {
	Participants []string    `yaml:"participants"`
	Exclusions   [][2]string `yaml:"exclusions"`
}

// LoadRoster reads and parses a roster file.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse roster %s: %w", path, err)
	}
	return &r, nil
}

// Set builds the exclusion set. Names are the participant keys.
func (r *Roster) Set() (*exclusion.Set, error) {
	pairs := make([]exclusion.Pair, len(r.Exclusions))
	for i, e := range r.Exclusions {
		pairs[i] = exclusion.NewPair(e[0], e[1])
	}
	return exclusion.NewSetWithPairs(r.Participants, pairs)
}
