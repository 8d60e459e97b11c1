// Package relation composes Rate Sources into a graph of directly-priced
// currency pairs and precomputes, for every reachable pair, the shortest
// recipe (by step count) that evaluates an indirect exchange rate by
// composing direct quotes, maintaining that shortest-route property
// incrementally as new direct pairs are added.
package relation

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/instant"
	"github.com/sklarsa/crypto-gains-engine/money"
)

// ErrNoRoute is returned by GetRate when no recipe connects the requested
// pair, directly or indirectly.
var ErrNoRoute = errors.New("relation: no route between currencies")

// ErrNoRate is returned when a Source has no sample at the requested time.
var ErrNoRate = errors.New("relation: rate source has no sample at requested time")

// Source is an opaque provider of a single directed pair sampled at
// time t.
type Source interface {
	Get(pair currency.Pair, t instant.Instant) (money.Amount, error)
}

// RecipeStep is one leg of a Recipe: evaluate the direct pair's rate, or
// its reciprocal.
type RecipeStep struct {
	Pair       currency.Pair
	Reciprocal bool
}

// Recipe is a non-empty ordered sequence of RecipeSteps.
type Recipe struct {
	Steps []RecipeStep
}

// Len returns the number of steps (used as the shortest-path cost).
func (r Recipe) Len() int {
	return len(r.Steps)
}

// Reverse returns a new Recipe evaluating the inverse conversion: the step
// list is reversed and each step's reciprocal flag is flipped.
func (r Recipe) Reverse() Recipe {
	out := make([]RecipeStep, len(r.Steps))
	for i, s := range r.Steps {
		out[len(r.Steps)-1-i] = RecipeStep{Pair: s.Pair, Reciprocal: !s.Reciprocal}
	}
	return Recipe{Steps: out}
}

// Evaluate folds step evaluations at t: multiply for non-reciprocal steps,
// divide for reciprocal ones.
func (r Recipe) Evaluate(src Source, t instant.Instant) (money.Amount, error) {
	if len(r.Steps) == 0 {
		return money.Zero, fmt.Errorf("relation: empty recipe")
	}
	result := money.One
	for _, step := range r.Steps {
		rate, err := src.Get(step.Pair, t)
		if err != nil {
			return money.Zero, errors.Wrapf(err, "relation: evaluating step %s (reciprocal=%v)", step.Pair, step.Reciprocal)
		}
		if step.Reciprocal {
			if rate.IsZero() {
				return money.Zero, fmt.Errorf("relation: reciprocal of zero rate for %s at %s", step.Pair, t)
			}
			result = result.Div(rate)
		} else {
			result = result.Mul(rate)
		}
	}
	return result, nil
}

func prependStep(step RecipeStep, r Recipe) Recipe {
	out := make([]RecipeStep, 0, len(r.Steps)+1)
	out = append(out, step)
	out = append(out, r.Steps...)
	return Recipe{Steps: out}
}

func appendStep(r Recipe, step RecipeStep) Recipe {
	out := make([]RecipeStep, 0, len(r.Steps)+1)
	out = append(out, r.Steps...)
	out = append(out, step)
	return Recipe{Steps: out}
}

func joinRecipes(a, middle, b Recipe) Recipe {
	out := make([]RecipeStep, 0, len(a.Steps)+len(middle.Steps)+len(b.Steps))
	out = append(out, a.Steps...)
	out = append(out, middle.Steps...)
	out = append(out, b.Steps...)
	return Recipe{Steps: out}
}

// directRecipe is the trivial single-step recipe for a freshly added pair.
func directRecipe(pair currency.Pair, reciprocal bool) Recipe {
	return Recipe{Steps: []RecipeStep{{Pair: pair, Reciprocal: reciprocal}}}
}

// CurrencyRelation composes a set of direct Sources and maintains the
// shortest known Recipe for every reachable pair.
type CurrencyRelation struct {
	base         currency.Code
	directPairs  []currency.Pair // insertion order, for RebuildFromScratch
	directSource map[currency.Pair]Source
	recipes      map[currency.Pair]Recipe
}

// New creates an empty CurrencyRelation. base is stored but not read by
// any method; the graph itself is currency-agnostic.
func New(base currency.Code) *CurrencyRelation {
	return &CurrencyRelation{
		base:         base,
		directSource: make(map[currency.Pair]Source),
		recipes:      make(map[currency.Pair]Recipe),
	}
}

// AddDirectPair registers src as the direct Rate Source for pair and
// incrementally extends the recipe graph. Grounded on relations.py's
// update_available_pairs: for every already-known recipe R: (u -> v), if v
// equals pair.Base and u != pair.Quote, a new recipe u -> pair.Quote is
// formed by appending the new pair's step; symmetrically for recipes that
// can be extended at the front. Recipes formed this way that could extend
// both an existing "before" and "after" recipe are also joined across the
// new pair, completing a transitive route in a single insertion.
func (r *CurrencyRelation) AddDirectPair(pair currency.Pair, src Source) {
	r.directPairs = append(r.directPairs, pair)
	r.directSource[pair] = src
	r.insert(pair)
}

// RebuildFromScratch discards all derived recipes and recomputes them by
// re-inserting each direct pair in the order it was originally added,
// reproducing the same recipe set the incremental algorithm converges to.
func (r *CurrencyRelation) RebuildFromScratch() {
	pairs := r.directPairs
	sources := r.directSource
	r.directPairs = nil
	r.directSource = make(map[currency.Pair]Source)
	r.recipes = make(map[currency.Pair]Recipe)
	for _, p := range pairs {
		r.AddDirectPair(p, sources[p])
	}
}

func (r *CurrencyRelation) insert(newPair currency.Pair) {
	type extension struct {
		cfrom, cto currency.Code
		recipe     Recipe
	}
	var addedAfter []extension  // existing recipe (cfrom -> cto) that now extends to (cfrom -> newPair.Quote)
	var addedBefore []extension // existing recipe (cfrom -> cto) that now extends to (newPair.Base -> cto)

	newStep := RecipeStep{Pair: newPair, Reciprocal: false}

	// Snapshot existing recipes before mutating the map, since the
	// candidates below are all computed relative to the pre-insert graph.
	existing := make(map[currency.Pair]Recipe, len(r.recipes))
	for k, v := range r.recipes {
		existing[k] = v
	}

	for key, known := range existing {
		u, v := key.Base, key.Quote
		if v == newPair.Base && u != newPair.Quote {
			candidate := currency.NewPair(u, newPair.Quote)
			recipe := appendStep(known, newStep)
			if r.tryInsert(candidate, recipe) {
				addedAfter = append(addedAfter, extension{cfrom: u, cto: newPair.Quote, recipe: recipe})
			}
		}
		if u == newPair.Quote && v != newPair.Base {
			candidate := currency.NewPair(newPair.Base, v)
			recipe := prependStep(newStep, known)
			if r.tryInsert(candidate, recipe) {
				addedBefore = append(addedBefore, extension{cfrom: newPair.Base, cto: v, recipe: recipe})
			}
		}
	}

	// Cross-product: an "added after" route and an "added before" route
	// can be joined through the new pair into a single longer route.
	for _, after := range addedAfter {
		for _, before := range addedBefore {
			if after.cfrom == before.cto {
				continue // would be a trivial self-loop
			}
			candidate := currency.NewPair(after.cfrom, before.cto)
			joined := joinRecipes(
				existing[currency.NewPair(after.cfrom, newPair.Base)],
				Recipe{Steps: []RecipeStep{newStep}},
				existing[currency.NewPair(newPair.Quote, before.cto)],
			)
			r.tryInsert(candidate, joined)
		}
	}

	// Finally, the new pair itself, as a single-step recipe.
	r.tryInsert(newPair, directRecipe(newPair, false))
}

// tryInsert installs recipe for pair (and its reverse) only if no recipe
// exists yet for pair, or recipe is strictly shorter than the incumbent.
// Equal length leaves the incumbent in place, so the result is stable
// under repeated inserts. Returns whether it inserted.
func (r *CurrencyRelation) tryInsert(pair currency.Pair, recipe Recipe) bool {
	if incumbent, ok := r.recipes[pair]; ok && incumbent.Len() <= recipe.Len() {
		return false
	}
	r.recipes[pair] = recipe
	r.recipes[pair.Reverse()] = recipe.Reverse()
	return true
}

// GetRate evaluates the recipe for (from, to) at t. from and to are
// case-normalized before lookup.
func (r *CurrencyRelation) GetRate(t instant.Instant, from, to currency.Code) (money.Amount, error) {
	pair := currency.NewPair(from, to)
	if pair.Base == pair.Quote {
		return money.One, nil
	}
	recipe, ok := r.recipes[pair]
	if !ok {
		return money.Zero, errors.Wrapf(ErrNoRoute, "%s", pair)
	}
	src := &compositeSource{r: r}
	rate, err := recipe.Evaluate(src, t)
	if err != nil {
		if errors.Is(err, ErrNoRate) {
			return money.Zero, err
		}
		return money.Zero, errors.Wrapf(ErrNoRate, "%s at %s: %v", pair, t, err)
	}
	return rate, nil
}

// RecipeLen exposes the step count of the recipe for pair, for tests that
// check shortest-path properties. Returns 0, false if no recipe is known.
func (r *CurrencyRelation) RecipeLen(pair currency.Pair) (int, bool) {
	recipe, ok := r.recipes[pair]
	if !ok {
		return 0, false
	}
	return recipe.Len(), true
}

// compositeSource adapts the relation's per-pair direct sources to the
// Source interface a Recipe evaluates against.
type compositeSource struct {
	r *CurrencyRelation
}

func (c *compositeSource) Get(pair currency.Pair, t instant.Instant) (money.Amount, error) {
	src, ok := c.r.directSource[pair]
	if !ok {
		return money.Zero, errors.Wrapf(ErrNoRoute, "no direct source for %s", pair)
	}
	rate, err := src.Get(pair, t)
	if err != nil {
		return money.Zero, errors.Wrapf(ErrNoRate, "%s at %s: %v", pair, t, err)
	}
	return rate, nil
}
