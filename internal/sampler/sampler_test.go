/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sampler

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
)

func testRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func mixedPool() []Entry {
	return []Entry{
		{Text: "breathe", Enabled: true, Tag: "breath"},
		{Text: "posture", Enabled: true, Tag: "body"},
		{Text: "gratitude", Enabled: true, Tag: "mind", Favourite: true},
		{Text: "stretch", Enabled: false, Tag: "body"},
		{Text: "water", Enabled: true, Tag: "body", Favourite: true},
	}
}

func TestSelectEmptyPool(t *testing.T) {
	_, err := Select(nil, DefaultFavouriteBias, testRand(1))
	if !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("Select(nil) error = %v, want ErrEmptyPool", err)
	}
	_, err = SelectBatch(5, []Entry{}, 0, testRand(1))
	if !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("SelectBatch(empty) error = %v, want ErrEmptyPool", err)
	}
}

func TestSelectSkipsDisabled(t *testing.T) {
	rng := testRand(3)
	for i := 0; i < 500; i++ {
		got, err := Select(mixedPool(), 0, rng)
		if err != nil {
			t.Fatalf("Select error: %v", err)
		}
		if got.Text == "stretch" {
			t.Fatal("Select returned a disabled entry")
		}
	}
}

func TestSelectAllDisabledFallsBack(t *testing.T) {
	pool := []Entry{
		{Text: "breathe", Enabled: false},
		{Text: "posture", Enabled: false},
	}
	got, err := Select(pool, DefaultFavouriteBias, testRand(1))
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if got.Text != "breathe" && got.Text != "posture" {
		t.Errorf("Select = %q, want a pool entry", got.Text)
	}
}

func TestSelectFullBiasPrefersFavourites(t *testing.T) {
	rng := testRand(9)
	for i := 0; i < 500; i++ {
		got, err := Select(mixedPool(), 1, rng)
		if err != nil {
			t.Fatalf("Select error: %v", err)
		}
		if !got.Favourite {
			t.Fatalf("bias 1 returned non-favourite %q", got.Text)
		}
	}
}

func TestSelectBiasWithoutFavouritesDegrades(t *testing.T) {
	pool := []Entry{
		{Text: "breathe", Enabled: true},
		{Text: "posture", Enabled: true},
	}
	rng := testRand(5)
	for i := 0; i < 100; i++ {
		got, err := Select(pool, 1, rng)
		if err != nil {
			t.Fatalf("Select error: %v", err)
		}
		if got.Text == "" {
			t.Fatal("empty selection")
		}
	}
}

func TestSelectUniformCoversPool(t *testing.T) {
	rng := testRand(11)
	seen := map[string]int{}
	for i := 0; i < 1000; i++ {
		got, _ := Select(mixedPool(), 0, rng)
		seen[got.Text]++
	}
	for _, text := range []string{"breathe", "posture", "gratitude", "water"} {
		if seen[text] == 0 {
			t.Errorf("entry %q never selected in 1000 uniform draws", text)
		}
	}
}

func TestSelectBatchLength(t *testing.T) {
	for _, n := range []int{0, 1, 3, 7, 50} {
		got, err := SelectBatch(n, mixedPool(), DefaultFavouriteBias, testRand(2))
		if err != nil {
			t.Fatalf("SelectBatch(%d) error: %v", n, err)
		}
		if len(got) != n {
			t.Errorf("SelectBatch(%d) returned %d items", n, len(got))
		}
	}
}

func TestSelectBatchNoConsecutiveRepeats(t *testing.T) {
	batch, err := SelectBatch(200, mixedPool(), 0, testRand(4))
	if err != nil {
		t.Fatalf("SelectBatch error: %v", err)
	}
	for i := 1; i < len(batch); i++ {
		if batch[i].Text == batch[i-1].Text {
			t.Fatalf("consecutive repeat %q at index %d", batch[i].Text, i)
		}
	}
}

func TestSelectBatchRoundRobinCoverage(t *testing.T) {
	// Four enabled entries, 40 draws: round-robin drains mean each
	// entry appears exactly ten times.
	batch, err := SelectBatch(40, mixedPool(), 0, testRand(6))
	if err != nil {
		t.Fatalf("SelectBatch error: %v", err)
	}
	counts := map[string]int{}
	for _, e := range batch {
		counts[e.Text]++
	}
	for text, count := range counts {
		if count != 10 {
			t.Errorf("entry %q drawn %d times, want 10", text, count)
		}
	}
}

func TestSelectBatchSingleEntryRepeats(t *testing.T) {
	pool := []Entry{{Text: "breathe", Enabled: true}}
	batch, err := SelectBatch(5, pool, 0, testRand(1))
	if err != nil {
		t.Fatalf("SelectBatch error: %v", err)
	}
	if len(batch) != 5 {
		t.Fatalf("len = %d, want 5", len(batch))
	}
	for _, e := range batch {
		if e.Text != "breathe" {
			t.Fatalf("unexpected entry %q", e.Text)
		}
	}
}

func TestSelectBatchBiasedDrawsFromBothDecks(t *testing.T) {
	batch, err := SelectBatch(1000, mixedPool(), 0.5, testRand(8))
	if err != nil {
		t.Fatalf("SelectBatch error: %v", err)
	}
	var favourites int
	for _, e := range batch {
		if e.Favourite {
			favourites++
		}
	}
	if favourites == 0 || favourites == len(batch) {
		t.Fatalf("favourite count %d of %d, want a mix", favourites, len(batch))
	}
}

func TestSelectBatchBiasOneOnlyFavourites(t *testing.T) {
	batch, err := SelectBatch(100, mixedPool(), 1, testRand(10))
	if err != nil {
		t.Fatalf("SelectBatch error: %v", err)
	}
	for _, e := range batch {
		if !e.Favourite {
			t.Fatalf("bias 1 emitted non-favourite %q", e.Text)
		}
	}
}

func TestLockedSourceConcurrentDraws(t *testing.T) {
	rng := NewLockedSource(testRand(11))
	pool := mixedPool()

	var wg sync.WaitGroup
	errCh := make(chan error, 4)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				entry, err := Select(pool, DefaultFavouriteBias, rng)
				if err != nil {
					errCh <- err
					return
				}
				if entry.Text == "" {
					errCh <- errors.New("empty draw")
					return
				}
				batch, err := SelectBatch(3, pool, DefaultFavouriteBias, rng)
				if err != nil {
					errCh <- err
					return
				}
				if len(batch) != 3 {
					errCh <- errors.New("short batch")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent draw: %v", err)
	}
}
