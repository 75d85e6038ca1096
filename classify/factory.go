package classify

import (
	"github.com/pkg/errors"

	"github.com/juruen/digitpad/config"
	"github.com/juruen/digitpad/log"
)

// FromConfig builds the configured classifier. It returns nil for kind
// "none", which callers treat as permanently unavailable.
func FromConfig(cfg config.Classifier) (Classifier, error) {
	switch cfg.Kind {
	case "", config.ClassifierNone:
		log.Trace.Println("classifier: none configured")
		return nil, nil
	case config.ClassifierDense:
		d, err := LoadDense(cfg.Weights)
		if err != nil {
			return nil, err
		}
		log.Info.Printf("loaded dense classifier from %s (%d layers)", cfg.Weights, len(d.Layers()))
		return d, nil
	case config.ClassifierRemote:
		return NewRemote(cfg.URL, cfg.ApplicationKey, cfg.HmacKey, cfg.Timeout), nil
	}
	return nil, errors.Errorf("unknown classifier kind %q", cfg.Kind)
}
