/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sampler picks reminder texts from a candidate pool with an
// optional bias toward favourites and bounded repetition in batches.
package sampler

import "errors"

// ErrEmptyPool is returned when the supplied pool has no entries at
// all. Pools with only disabled entries are not empty: selection falls
// back to the full pool rather than failing.
var ErrEmptyPool = errors.New("sampler: empty reminder pool")

// DefaultFavouriteBias is the probability of preferring the favourite
// subset when the caller does not override it.
const DefaultFavouriteBias = 0.2

// Entry is one candidate reminder. The pool is treated as an immutable
// snapshot per call; the sampler caches nothing across calls.
type Entry struct {
	Text      string
	Enabled   bool
	Tag       string
	Favourite bool
}

// Source is the subset of math/rand the sampler consumes. *rand.Rand
// satisfies it.
type Source interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// Select picks one entry. Disabled entries are filtered out first; a
// pool with nothing enabled falls back to the full pool so a non-empty
// pool always yields a result. A bias of zero or less selects
// uniformly; a positive bias prefers favourites with that probability,
// degrading through non-favourites to the whole candidate set when the
// preferred partition is empty.
func Select(pool []Entry, bias float64, rng Source) (Entry, error) {
	candidates := enabledOrAll(pool)
	if len(candidates) == 0 {
		return Entry{}, ErrEmptyPool
	}
	if bias <= 0 {
		return candidates[rng.Intn(len(candidates))], nil
	}

	favourites, rest := partition(candidates)
	preferred, fallback := rest, favourites
	if rng.Float64() < bias {
		preferred, fallback = favourites, rest
	}
	for _, set := range [][]Entry{preferred, fallback, candidates} {
		if len(set) > 0 {
			return set[rng.Intn(len(set))], nil
		}
	}
	return Entry{}, ErrEmptyPool // unreachable: candidates is non-empty
}

// SelectBatch produces exactly n entries. Draws come from shuffled
// decks consumed front to back and reshuffled on exhaustion, so no
// entry repeats until every other entry in its deck has appeared once.
// A positive bias keeps favourites and non-favourites as two
// independent decks, flipping the biased coin per draw.
func SelectBatch(n int, pool []Entry, bias float64, rng Source) ([]Entry, error) {
	candidates := enabledOrAll(pool)
	if len(candidates) == 0 {
		return nil, ErrEmptyPool
	}

	out := make([]Entry, 0, max(n, 0))
	if bias <= 0 {
		d := newDeck(candidates, rng)
		for len(out) < n {
			out = append(out, d.next(rng))
		}
		return out, nil
	}

	favourites, rest := partition(candidates)
	var favDeck, restDeck *deck
	if len(favourites) > 0 {
		favDeck = newDeck(favourites, rng)
	}
	if len(rest) > 0 {
		restDeck = newDeck(rest, rng)
	}

	for len(out) < n {
		useFavourite := rng.Float64() < bias
		switch {
		case useFavourite && favDeck != nil:
			out = append(out, favDeck.next(rng))
		case !useFavourite && restDeck != nil:
			out = append(out, restDeck.next(rng))
		case favDeck != nil:
			out = append(out, favDeck.next(rng))
		default:
			out = append(out, restDeck.next(rng))
		}
	}
	return out, nil
}

func enabledOrAll(pool []Entry) []Entry {
	enabled := make([]Entry, 0, len(pool))
	for _, e := range pool {
		if e.Enabled {
			enabled = append(enabled, e)
		}
	}
	if len(enabled) == 0 {
		return pool
	}
	return enabled
}

func partition(entries []Entry) (favourites, rest []Entry) {
	for _, e := range entries {
		if e.Favourite {
			favourites = append(favourites, e)
		} else {
			rest = append(rest, e)
		}
	}
	return favourites, rest
}

// deck is a round-robin shuffle: drained front to back, reshuffled
// when empty, never handing out the same entry twice in a row when it
// holds more than one.
type deck struct {
	entries []Entry
	pos     int
}

func newDeck(entries []Entry, rng Source) *deck {
	d := &deck{entries: append([]Entry(nil), entries...)}
	rng.Shuffle(len(d.entries), func(i, j int) {
		d.entries[i], d.entries[j] = d.entries[j], d.entries[i]
	})
	return d
}

func (d *deck) next(rng Source) Entry {
	if d.pos >= len(d.entries) {
		d.reshuffle(rng)
	}
	e := d.entries[d.pos]
	d.pos++
	return e
}

func (d *deck) reshuffle(rng Source) {
	last := d.entries[len(d.entries)-1]
	rng.Shuffle(len(d.entries), func(i, j int) {
		d.entries[i], d.entries[j] = d.entries[j], d.entries[i]
	})
	// Keep the deck boundary from emitting the previous tail again.
	if len(d.entries) > 1 && d.entries[0].Text == last.Text {
		j := 1 + rng.Intn(len(d.entries)-1)
		d.entries[0], d.entries[j] = d.entries[j], d.entries[0]
	}
	d.pos = 0
}
