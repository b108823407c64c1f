// Package catalog holds the recipe registry.
//
// A Recipe is a named bill of materials: an ordered list of ingredient
// requirements per produced unit, plus the feasibility memo the engine's
// checker maintains on it. The registry owns every Recipe; waiting orders
// hold a read-only handle, queued orders only a copy of the name.
package catalog

import (
	"errors"
	"math"
	"sort"
)

// DefaultMaxIngredients bounds the ingredient list of a recipe.
const DefaultMaxIngredients = 10

var (
	// ErrAlreadyExists is returned by Create for a name already registered.
	ErrAlreadyExists = errors.New("recipe already exists")

	// ErrNotFound is returned by Remove for an unknown name.
	ErrNotFound = errors.New("recipe not found")

	// ErrInUse is returned by Remove while orders still reference the recipe.
	ErrInUse = errors.New("recipe has pending orders")

	// ErrTooManyIngredients is returned by AddIngredient past the cap.
	ErrTooManyIngredients = errors.New("recipe ingredient limit reached")
)

// Requirement is one ingredient slot of a recipe.
type Requirement struct {
	Ingredient string
	PerUnit    int64
}

// Need returns how much of the ingredient quantity units consume. It reports
// false when the product is negative or does not fit in an int64.
func (q Requirement) Need(quantity int64) (int64, bool) {
	return mulQuantity(quantity, q.PerUnit)
}

// Memo records the smallest quantity known infeasible at Tick.
type Memo struct {
	Tick          int64
	MinInfeasible int64
	Set           bool
}

// Recipe is a registered bill of materials.
type Recipe struct {
	name         string
	requirements []Requirement
	memo         Memo
}

// Name returns the recipe name.
func (r *Recipe) Name() string { return r.name }

// Requirements returns the ingredient slots in insertion order.
// The returned slice must not be modified.
func (r *Recipe) Requirements() []Requirement { return r.requirements }

// Weight returns the shipping weight of quantity units: quantity times the
// sum of per-unit amounts. It reports false when the weight overflows int64.
func (r *Recipe) Weight(quantity int64) (int64, bool) {
	var w int64
	for _, req := range r.requirements {
		n, ok := req.Need(quantity)
		if !ok || n > math.MaxInt64-w {
			return 0, false
		}
		w += n
	}
	return w, true
}

func mulQuantity(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

// Memo returns the current feasibility memo.
func (r *Recipe) Memo() Memo { return r.memo }

// KnownInfeasible reports whether the memo already proves quantity
// infeasible at tick. Infeasibility is monotone in quantity within one tick.
func (r *Recipe) KnownInfeasible(quantity, tick int64) bool {
	return r.memo.Set && r.memo.Tick == tick && quantity >= r.memo.MinInfeasible
}

// MarkInfeasible records that quantity could not be produced at tick.
func (r *Recipe) MarkInfeasible(quantity, tick int64) {
	r.memo = Memo{Tick: tick, MinInfeasible: quantity, Set: true}
}

// Registry indexes recipes by name.
type Registry struct {
	recipes        map[string]*Recipe
	maxIngredients int
}

// NewRegistry creates an empty registry. A non-positive maxIngredients
// falls back to DefaultMaxIngredients.
func NewRegistry(maxIngredients int) *Registry {
	if maxIngredients <= 0 {
		maxIngredients = DefaultMaxIngredients
	}
	return &Registry{
		recipes:        make(map[string]*Recipe),
		maxIngredients: maxIngredients,
	}
}

// Create registers an empty recipe.
// Returns ErrAlreadyExists, without touching the registry, if name is taken.
func (r *Registry) Create(name string) (*Recipe, error) {
	if _, ok := r.recipes[name]; ok {
		return nil, ErrAlreadyExists
	}
	recipe := &Recipe{name: name}
	r.recipes[name] = recipe
	return recipe, nil
}

// AddIngredient appends a requirement to recipe.
// Repeated ingredient names are kept as separate slots.
func (r *Registry) AddIngredient(recipe *Recipe, ingredient string, perUnit int64) error {
	if len(recipe.requirements) >= r.maxIngredients {
		return ErrTooManyIngredients
	}
	recipe.requirements = append(recipe.requirements, Requirement{Ingredient: ingredient, PerUnit: perUnit})
	return nil
}

// Remove deletes the named recipe.
//
// inUse is asked whether any queued or waiting order references the name;
// if it reports true the registry is left unchanged and ErrInUse returned.
func (r *Registry) Remove(name string, inUse func(name string) bool) error {
	if _, ok := r.recipes[name]; !ok {
		return ErrNotFound
	}
	if inUse != nil && inUse(name) {
		return ErrInUse
	}
	delete(r.recipes, name)
	return nil
}

// Lookup returns the named recipe.
func (r *Registry) Lookup(name string) (*Recipe, bool) {
	recipe, ok := r.recipes[name]
	return recipe, ok
}

// Len returns the number of registered recipes.
func (r *Registry) Len() int { return len(r.recipes) }

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.recipes))
	for name := range r.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaxIngredients returns the per-recipe ingredient cap.
func (r *Registry) MaxIngredients() int { return r.maxIngredients }
