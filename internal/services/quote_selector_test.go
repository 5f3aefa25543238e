package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger/memory"
)

func mustQuote(t *testing.T, s *memory.Store, projectID string, cents int64) core.Quote {
	t.Helper()
	q, err := s.InsertQuote(context.Background(), core.Quote{ProjectID: projectID, SupplierID: "sup", Amount: core.Money{Cents: cents}})
	require.NoError(t, err)
	return q
}

func chosenIDs(t *testing.T, s *memory.Store, projectID string) []string {
	t.Helper()
	quotes, err := s.ListQuotes(context.Background(), projectID)
	require.NoError(t, err)
	var ids []string
	for _, q := range quotes {
		if q.Chosen {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

func TestChooseQuote_SwitchesSelection(t *testing.T) {
	s := memory.New()
	a := mustQuote(t, s, "proj", 1000)
	b := mustQuote(t, s, "proj", 2000)
	other := mustQuote(t, s, "other", 3000)
	pub := &recordingPublisher{}
	sel := NewQuoteSelector(s, pub, nil)
	ctx := context.Background()

	got, err := sel.ChooseQuote(ctx, a.ID, "proj")
	require.NoError(t, err)
	assert.True(t, got.Chosen)
	assert.Equal(t, []string{a.ID}, chosenIDs(t, s, "proj"))

	_, err = sel.ChooseQuote(ctx, other.ID, "other")
	require.NoError(t, err)

	_, err = sel.ChooseQuote(ctx, b.ID, "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, chosenIDs(t, s, "proj"))
	// Other projects are left alone.
	assert.Equal(t, []string{other.ID}, chosenIDs(t, s, "other"))

	require.Len(t, pub.events, 3)
	assert.Equal(t, recordedEvent{"quote.chosen", b.ID, "proj"}, pub.events[2])
}

func TestChooseQuote_Reselecting(t *testing.T) {
	s := memory.New()
	a := mustQuote(t, s, "proj", 1000)
	sel := NewQuoteSelector(s, nil, nil)

	for i := 0; i < 2; i++ {
		_, err := sel.ChooseQuote(context.Background(), a.ID, "proj")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{a.ID}, chosenIDs(t, s, "proj"))
}

func TestChooseQuote_Errors(t *testing.T) {
	s := memory.New()
	a := mustQuote(t, s, "proj", 1000)
	foreign := mustQuote(t, s, "other", 1000)
	sel := NewQuoteSelector(s, nil, nil)
	ctx := context.Background()

	_, err := sel.ChooseQuote(ctx, a.ID, "proj")
	require.NoError(t, err)

	tests := []struct {
		name      string
		quoteID   string
		projectID string
		want      error
	}{
		{"missing quote id", "", "proj", core.ErrValidation},
		{"missing project id", a.ID, " ", core.ErrValidation},
		{"unknown quote", "nope", "proj", core.ErrNotFound},
		{"quote of another project", foreign.ID, "proj", core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sel.ChooseQuote(ctx, tt.quoteID, tt.projectID)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// Rejected selections do not disturb the existing choice.
	assert.Equal(t, []string{a.ID}, chosenIDs(t, s, "proj"))
	assert.Empty(t, chosenIDs(t, s, "other"))
}

func TestChooseQuote_StoreFailureIsWrapped(t *testing.T) {
	fs := &failingStore{Store: memory.New(), failSelect: true}
	a := mustQuote(t, fs.Store, "proj", 1000)
	pub := &recordingPublisher{}

	_, err := NewQuoteSelector(fs, pub, nil).ChooseQuote(context.Background(), a.ID, "proj")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStore)
	assert.Contains(t, err.Error(), "choose_quote does not exist")
	assert.Empty(t, pub.events)
}

func TestChooseQuote_PublishFailureDoesNotFail(t *testing.T) {
	s := memory.New()
	a := mustQuote(t, s, "proj", 1000)
	pub := &recordingPublisher{err: errors.New("broker down")}

	got, err := NewQuoteSelector(s, pub, nil).ChooseQuote(context.Background(), a.ID, "proj")
	require.NoError(t, err)
	assert.True(t, got.Chosen)
}

func TestChooseQuote_ConcurrentLeavesExactlyOne(t *testing.T) {
	s := memory.New()
	var ids []string
	for i := 0; i < 8; i++ {
		ids = append(ids, mustQuote(t, s, "proj", int64(1000+i)).ID)
	}
	sel := NewQuoteSelector(s, nil, nil)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = sel.ChooseQuote(context.Background(), id, "proj")
		}(id)
	}
	wg.Wait()

	assert.Len(t, chosenIDs(t, s, "proj"), 1)
}
