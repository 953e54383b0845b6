package lookup

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/diwise/county-lookup/pkg/counties"
	"github.com/diwise/county-lookup/pkg/geojson"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	yaml "gopkg.in/yaml.v2"
)

type DatasetConfig struct {
	Name         string `yaml:"name"`
	Path         string `yaml:"path"`
	NameProperty string `yaml:"nameProperty"`
}

// Property returns the feature property that holds the county name,
// defaulting to "navn" as used by the Norwegian kommune datasets.
func (d DatasetConfig) Property() string {
	if d.NameProperty != "" {
		return d.NameProperty
	}

	return "navn"
}

type Config struct {
	Datasets []DatasetConfig `yaml:"datasets"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)

	return cfg, err
}

// BuildIndex reads every configured dataset and assembles a single county
// index. Dataset order carries over into the index, so datasets listed
// first take priority where boundaries overlap. Any dataset that fails to
// load fails the whole build; a partial index is never returned.
func BuildIndex(ctx context.Context, cfg *Config) (*counties.CountyIndex, error) {
	log := logging.GetFromContext(ctx)

	all := []counties.County{}

	for _, dataset := range cfg.Datasets {
		f, err := os.Open(dataset.Path)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", dataset.Name, err)
		}

		fc, err := geojson.ReadFeatureCollection(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", dataset.Name, err)
		}

		loaded, err := counties.FromFeatureCollection(fc, dataset.Property())
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", dataset.Name, err)
		}

		log.Info("loaded dataset", "name", dataset.Name, "counties", len(loaded))

		all = append(all, loaded...)
	}

	return counties.NewIndex(all...), nil
}
