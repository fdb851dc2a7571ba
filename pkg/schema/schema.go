// Package schema holds the canonical entity and link type registries.
//
// Entity types carry a display icon, a color and a detection profile. Link
// types carry a display label, a color and the keywords that map free-form
// relationship names onto them. Profiles are data, so new types can be
// registered at runtime without touching the detector.
package schema

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator"
)

// FieldPattern matches a property by name and, optionally, by value.
// Both are regular expressions; matching is case-insensitive.
type FieldPattern struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value,omitempty"`
}

// Profile is the data-driven description of how to recognize a type.
type Profile struct {
	Keywords   []string       `json:"keywords,omitempty"`
	Properties []string       `json:"properties,omitempty"`
	Patterns   []FieldPattern `json:"patterns,omitempty" validate:"dive"`
}

func (p Profile) empty() bool {
	return len(p.Keywords) == 0 && len(p.Properties) == 0 && len(p.Patterns) == 0
}

// EntityTypeDef declares a canonical entity type.
type EntityTypeDef struct {
	Name    string   `json:"name" validate:"required"`
	Icon    string   `json:"icon" validate:"required"`
	Color   string   `json:"color" validate:"required,hexcolor"`
	Aliases []string `json:"aliases,omitempty"`
	Profile Profile  `json:"profile"`
}

// CompiledPattern is a FieldPattern with its expressions compiled.
type CompiledPattern struct {
	Field *regexp.Regexp
	Value *regexp.Regexp
}

// EntityType is a registered entity type.
type EntityType struct {
	Name     string
	Icon     string
	Color    string
	Profile  Profile
	Patterns []CompiledPattern
}

// LinkType is a registered relationship kind.
type LinkType struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Keywords []string
}

// Registry is the set of canonical entity and link types. Declaration order
// matters: detection ties resolve to the earliest declared type.
type Registry struct {
	mu sync.RWMutex

	entityTypes []*EntityType
	entityIndex map[string]*EntityType
	aliases     map[string]string

	linkTypes []*LinkType
	linkIndex map[string]*LinkType
}

var validate = validator.New()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entityIndex: make(map[string]*EntityType),
		aliases:     make(map[string]string),
		linkIndex:   make(map[string]*LinkType),
	}
}

// Default returns a registry holding the built-in entity and link types.
func Default() *Registry {
	r := NewRegistry()
	for _, def := range builtinEntityTypes {
		if err := r.RegisterEntityType(def); err != nil {
			panic(fmt.Sprintf("schema: invalid builtin type %q: %v", def.Name, err))
		}
	}
	for _, lt := range builtinLinkTypes {
		r.RegisterLinkType(lt)
	}
	return r
}

// RegisterEntityType validates and adds an entity type. Registering an
// existing name replaces its definition in place, keeping its declaration
// position.
func (r *Registry) RegisterEntityType(def EntityTypeDef) error {
	if err := validate.Struct(def); err != nil {
		return fmt.Errorf("invalid entity type: %w", err)
	}
	if def.Profile.empty() && def.Name != TypeCustom {
		return fmt.Errorf("invalid entity type %q: profile declares no keywords, properties or patterns", def.Name)
	}

	name := strings.ToLower(strings.TrimSpace(def.Name))
	patterns := make([]CompiledPattern, 0, len(def.Profile.Patterns))
	for _, p := range def.Profile.Patterns {
		field, err := regexp.Compile("(?i)" + p.Field)
		if err != nil {
			return fmt.Errorf("invalid field pattern %q for %q: %w", p.Field, name, err)
		}
		cp := CompiledPattern{Field: field}
		if p.Value != "" {
			value, err := regexp.Compile("(?i)" + p.Value)
			if err != nil {
				return fmt.Errorf("invalid value pattern %q for %q: %w", p.Value, name, err)
			}
			cp.Value = value
		}
		patterns = append(patterns, cp)
	}

	et := &EntityType{
		Name:     name,
		Icon:     def.Icon,
		Color:    def.Color,
		Profile:  def.Profile,
		Patterns: patterns,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entityIndex[name]; ok {
		*existing = *et
	} else {
		r.entityTypes = append(r.entityTypes, et)
		r.entityIndex[name] = et
	}
	r.aliases[name] = name
	for _, alias := range def.Aliases {
		r.aliases[strings.ToLower(strings.TrimSpace(alias))] = name
	}
	return nil
}

// RegisterLinkType adds or replaces a link type.
func (r *Registry) RegisterLinkType(lt LinkType) {
	lt.Name = strings.ToLower(strings.TrimSpace(lt.Name))
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.linkIndex[lt.Name]; ok {
		*existing = lt
		return
	}
	c := lt
	r.linkTypes = append(r.linkTypes, &c)
	r.linkIndex[lt.Name] = &c
}

// EntityTypes returns the registered entity types in declaration order.
func (r *Registry) EntityTypes() []*EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entityTypes)
}

// EntityType looks up a registered entity type by canonical name.
func (r *Registry) EntityType(name string) (*EntityType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	et, ok := r.entityIndex[name]
	return et, ok
}

// IsEntityType reports whether name is a canonical entity type.
func (r *Registry) IsEntityType(name string) bool {
	_, ok := r.EntityType(name)
	return ok
}

// NormalizeEntityType maps a free-form type name onto a canonical type
// through the alias table. It reports false for empty, "unknown" and
// unrecognized names.
func (r *Registry) NormalizeEntityType(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" || key == TypeUnknown {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.aliases[key]; ok {
		return name, true
	}
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if name, ok := r.aliases[key]; ok {
		return name, true
	}
	if name, ok := r.aliases[strings.TrimSuffix(key, "s")]; ok {
		return name, true
	}
	return "", false
}

// LinkTypes returns the registered link types in declaration order.
func (r *Registry) LinkTypes() []*LinkType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.linkTypes)
}

// LinkType looks up a registered link type by canonical name.
func (r *Registry) LinkType(name string) (*LinkType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lt, ok := r.linkIndex[name]
	return lt, ok
}

// NormalizeLinkType maps a relationship name onto a canonical link type.
// Canonical names map to themselves; other names are tokenized and matched
// against each type's keywords. It reports false when nothing matches.
func (r *Registry) NormalizeLinkType(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" || key == TypeUnknown {
		return "", false
	}
	if _, ok := r.LinkType(key); ok {
		return key, true
	}
	tokens := Tokenize(key)
	for _, name := range linkKeywordOrder {
		lt, ok := r.LinkType(name)
		if !ok {
			continue
		}
		if matchesAnyKeyword(tokens, lt.Keywords) {
			return lt.Name, true
		}
	}
	return "", false
}

// LinkLabel returns the display label of a link type, or the type name
// itself when the type is not registered.
func (r *Registry) LinkLabel(name string) string {
	if lt, ok := r.LinkType(name); ok && lt.Label != "" {
		return lt.Label
	}
	return name
}

func matchesAnyKeyword(tokens []string, keywords []string) bool {
	for _, tok := range tokens {
		for _, kw := range keywords {
			if tok == kw || strings.HasPrefix(tok, kw) {
				return true
			}
		}
	}
	return false
}
