// Package canonical turns raw graphs into canonical graphs: typed, labeled,
// normalized entities and links with referential closure.
package canonical

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wsmontes/linkchart/pkg/detect"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/recognizer"
	"github.com/wsmontes/linkchart/pkg/schema"
)

// ErrBatchInFlight is returned by Configure while a batch is running.
var ErrBatchInFlight = errors.New("canonical: batch in flight")

// Config holds the tunable parts of a pipeline.
type Config struct {
	// MinConfidence below which values pass through unrecognized. Zero
	// selects recognizer.DefaultMinConfidence.
	MinConfidence float64
	// DisabledKinds turns individual recognizers off.
	DisabledKinds []recognizer.Kind
	// DisableTypeDetection assigns DefaultType instead of detecting.
	DisableTypeDetection bool
	DefaultType          string
	CustomTypes          []schema.EntityTypeDef
	// Geocoder resolves addresses of locations lacking coordinates. Nil
	// disables geocoding.
	Geocoder recognizer.Geocoder
}

// Pipeline is the canonicalization context. It owns the schema registry,
// the recognizers, the type detector and the geocoder. It is safe for
// concurrent use; Configure is refused while batches run.
type Pipeline struct {
	mu       sync.Mutex
	inFlight int
	state    *state
}

// state is an immutable snapshot used by one batch.
type state struct {
	types         *schema.Registry
	recognizers   *recognizer.Registry
	detector      detect.Detector
	geocoder      recognizer.Geocoder
	typeDetection bool
	defaultType   string
}

func New(cfg Config) (*Pipeline, error) {
	st, err := buildState(cfg)
	if err != nil {
		return nil, err
	}
	return &Pipeline{state: st}, nil
}

// Configure rebuilds the recognizers, detector and geocoder.
func (p *Pipeline) Configure(cfg Config) error {
	st, err := buildState(cfg)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight > 0 {
		return ErrBatchInFlight
	}
	p.state = st
	logger.Debug("[Canonical] Pipeline configured", "customTypes", len(cfg.CustomTypes), "geocoding", cfg.Geocoder != nil)
	return nil
}

// Types returns the schema registry of the current configuration.
func (p *Pipeline) Types() *schema.Registry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.types
}

func (p *Pipeline) acquire() (*state, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight++
	st := p.state
	return st, func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}
}

func buildState(cfg Config) (*state, error) {
	types := schema.Default()
	for _, def := range cfg.CustomTypes {
		if err := types.RegisterEntityType(def); err != nil {
			return nil, fmt.Errorf("custom type %q: %w", def.Name, err)
		}
	}

	var opts []recognizer.Option
	if cfg.MinConfidence > 0 {
		opts = append(opts, recognizer.WithMinConfidence(cfg.MinConfidence))
	}
	if len(cfg.DisabledKinds) > 0 {
		opts = append(opts, recognizer.WithDisabled(cfg.DisabledKinds...))
	}

	defaultType := schema.TypePerson
	if cfg.DefaultType != "" {
		t, ok := types.NormalizeEntityType(cfg.DefaultType)
		if !ok {
			return nil, fmt.Errorf("default type %q is not a registered entity type", cfg.DefaultType)
		}
		defaultType = t
	}

	return &state{
		types:         types,
		recognizers:   recognizer.New(opts...),
		detector:      detect.New(types, detect.WithDefaultType(defaultType)),
		geocoder:      cfg.Geocoder,
		typeDetection: !cfg.DisableTypeDetection,
		defaultType:   defaultType,
	}, nil
}
