// Package config loads the JSON options document that tunes the ingestion
// pipeline: geocoding service, caching, recognizer and type detection rules.
package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/go-playground/validator"

	"github.com/wsmontes/linkchart/pkg/canonical"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/mapper"
	"github.com/wsmontes/linkchart/pkg/recognizer"
	"github.com/wsmontes/linkchart/pkg/schema"
)

// GeocodingService is the services key of the geocoder.
const GeocodingService = "geocoding"

// Options is the options document. Durations are in milliseconds.
type Options struct {
	CacheTimeout   int                `json:"cacheTimeout" validate:"gte=0"`
	MaxCacheSize   int                `json:"maxCacheSize" validate:"gte=0"`
	RateLimitDelay int                `json:"rateLimitDelay" validate:"gte=0"`
	RequestTimeout int                `json:"requestTimeout" validate:"gte=0"`
	Services       map[string]Service `json:"services" validate:"dive"`
	Rules          ProcessingRules    `json:"processingRules"`
}

// Service configures an external service.
type Service struct {
	URL     string `json:"url" validate:"omitempty,url"`
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"apiKey"`
}

type ProcessingRules struct {
	FieldMapping  FieldMapping  `json:"fieldMapping"`
	Normalization Normalization `json:"normalization"`
	TypeDetection TypeDetection `json:"typeDetection"`
}

// FieldMapping pins mapper roles to column names.
type FieldMapping struct {
	Entities map[string]string `json:"entities" validate:"dive,keys,oneof=id type label,endkeys,required"`
	Links    map[string]string `json:"links" validate:"dive,keys,oneof=id source target type label,endkeys,required"`
}

type Normalization struct {
	MinConfidence float64  `json:"minConfidence" validate:"gte=0,lte=1"`
	Disabled      []string `json:"disabled" validate:"dive,oneof=coordinate date email phone address numeric"`
}

type TypeDetection struct {
	// Enabled is a pointer so that an absent key keeps detection on.
	Enabled     *bool                  `json:"enabled"`
	DefaultType string                 `json:"defaultType"`
	CustomTypes []schema.EntityTypeDef `json:"customTypes" validate:"dive"`
}

// Default returns the options used when no document is given.
func Default() *Options {
	return &Options{
		CacheTimeout:   int(recognizer.DefaultCacheTTL / time.Millisecond),
		MaxCacheSize:   recognizer.DefaultCacheSize,
		RateLimitDelay: int(recognizer.DefaultRateLimitDelay / time.Millisecond),
		RequestTimeout: int(recognizer.DefaultRequestTimeout / time.Millisecond),
		Services:       map[string]Service{},
	}
}

var validate = validator.New()

// Load reads and parses the options document at path.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options: %w", err)
	}
	return Parse(data)
}

// Parse decodes an options document on top of the defaults. Unknown keys
// are ignored and logged.
func Parse(data []byte) (*Options, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse options: %w", err)
	}
	for _, key := range UnknownKeys(doc) {
		logger.Warn("[Config] Ignoring unknown option", "key", key)
	}

	opts := Default()
	if err := json.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parse options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks value ranges, service URLs and custom type definitions.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	for name, svc := range o.Services {
		if svc.Enabled && svc.URL == "" {
			return fmt.Errorf("invalid options: service %q is enabled without url", name)
		}
	}
	return nil
}

// known lists the accepted keys per object path. Objects at paths absent
// from the table are not inspected.
var known = map[string][]string{
	"":                              {"cacheTimeout", "maxCacheSize", "rateLimitDelay", "requestTimeout", "services", "processingRules"},
	"processingRules":               {"fieldMapping", "normalization", "typeDetection"},
	"processingRules.fieldMapping":  {"entities", "links"},
	"processingRules.normalization": {"minConfidence", "disabled"},
	"processingRules.typeDetection": {"enabled", "defaultType", "customTypes"},
}

// UnknownKeys lists the dotted paths of keys the options document does not
// define, sorted.
func UnknownKeys(doc map[string]any) []string {
	var out []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		allowed, ok := known[prefix]
		if !ok {
			return
		}
		for k, v := range m {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if !slices.Contains(allowed, k) {
				out = append(out, path)
				continue
			}
			if child, ok := v.(map[string]any); ok {
				walk(path, child)
			}
		}
	}
	walk("", doc)

	services, _ := doc["services"].(map[string]any)
	for name, svc := range services {
		fields, ok := svc.(map[string]any)
		if !ok {
			continue
		}
		for k := range fields {
			if !slices.Contains([]string{"url", "enabled", "apiKey"}, k) {
				out = append(out, "services."+name+"."+k)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Assignment converts the field mapping into a mapper assignment.
func (o *Options) Assignment() mapper.Assignment {
	a := mapper.Assignment{}
	if len(o.Rules.FieldMapping.Entities) > 0 {
		a.Entities = make(map[mapper.Role]string, len(o.Rules.FieldMapping.Entities))
		for role, col := range o.Rules.FieldMapping.Entities {
			a.Entities[mapper.Role(role)] = col
		}
	}
	if len(o.Rules.FieldMapping.Links) > 0 {
		a.Links = make(map[mapper.Role]string, len(o.Rules.FieldMapping.Links))
		for role, col := range o.Rules.FieldMapping.Links {
			a.Links[mapper.Role(role)] = col
		}
	}
	return a
}

// Geocoder builds the cached HTTP geocoder, or returns nil when the
// geocoding service is absent or disabled.
func (o *Options) Geocoder() recognizer.Geocoder {
	svc, ok := o.Services[GeocodingService]
	if !ok || !svc.Enabled || svc.URL == "" {
		return nil
	}
	timeout := ms(o.RequestTimeout)
	client := &http.Client{Timeout: timeout}
	return recognizer.NewCachedGeocoder(
		recognizer.NewHTTPGeocoder(svc.URL, svc.APIKey, client),
		recognizer.CacheOptions{
			MaxSize:        o.MaxCacheSize,
			TTL:            ms(o.CacheTimeout),
			RateLimitDelay: ms(o.RateLimitDelay),
			RequestTimeout: timeout,
		},
	)
}

// PipelineConfig converts the options into a canonical pipeline
// configuration.
func (o *Options) PipelineConfig() canonical.Config {
	norm := o.Rules.Normalization
	disabled := make([]recognizer.Kind, 0, len(norm.Disabled))
	for _, k := range norm.Disabled {
		disabled = append(disabled, recognizer.Kind(k))
	}
	td := o.Rules.TypeDetection
	return canonical.Config{
		MinConfidence:        norm.MinConfidence,
		DisabledKinds:        disabled,
		DisableTypeDetection: td.Enabled != nil && !*td.Enabled,
		DefaultType:          td.DefaultType,
		CustomTypes:          td.CustomTypes,
		Geocoder:             o.Geocoder(),
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
