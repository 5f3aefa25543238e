package services

import (
	"context"
	"errors"
	"strings"

	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/core"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/ledger"
	"github.com/raul-d-souza/hub-de-reformas-sub001/internal/log"
)

// QuoteSelector finalizes procurement by choosing one quote per project.
type QuoteSelector struct {
	quotes    ledger.QuoteStore
	publisher EventPublisher
	logger    *log.Logger
}

func NewQuoteSelector(quotes ledger.QuoteStore, publisher EventPublisher, logger *log.Logger) *QuoteSelector {
	if logger == nil {
		logger = log.Default()
	}
	return &QuoteSelector{
		quotes:    quotes,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentQuotes),
	}
}

// ChooseQuote marks quoteID as the project's chosen quote and clears every
// other quote of the project in one atomic store operation. Failures are
// returned as is; nothing is retried here.
func (s *QuoteSelector) ChooseQuote(ctx context.Context, quoteID, projectID string) (core.Quote, error) {
	if strings.TrimSpace(quoteID) == "" {
		return core.Quote{}, core.NewValidationError("quote_id", "quote id is required")
	}
	if strings.TrimSpace(projectID) == "" {
		return core.Quote{}, core.NewValidationError("project_id", "project id is required")
	}

	q, err := s.quotes.SelectQuote(ctx, quoteID, projectID)
	if err != nil {
		if !errors.Is(err, core.ErrValidation) && !errors.Is(err, core.ErrNotFound) && !errors.Is(err, core.ErrStore) {
			err = core.NewStoreError("select quote", err)
		}
		s.logger.ErrorContextErr(ctx, "Quote selection failed", err,
			log.FieldQuoteID, quoteID,
			log.FieldProjectID, projectID)
		return core.Quote{}, err
	}

	s.logger.InfoContext(ctx, "Quote chosen",
		log.FieldQuoteID, q.ID,
		log.FieldProjectID, projectID)

	if s.publisher != nil {
		if err := s.publisher.PublishQuoteChosen(ctx, q.ID, projectID); err != nil {
			// The selection is committed; the announcement is best effort.
			s.logger.WarnContext(ctx, "Failed to publish quote chosen event",
				log.FieldQuoteID, q.ID, log.FieldError, err)
		}
	}
	return q, nil
}
