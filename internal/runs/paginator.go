// -----------------------------------------------------------------------
// Cursor Paginator - compound-key traversal of the lead collection
// -----------------------------------------------------------------------

package runs

import (
	"context"
	"fmt"
	"time"

	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// Paginator walks an ordered lead collection in fixed-size pages using a
// compound (CreatedAt, ID) cursor. CreatedAt alone is not unique: a page
// boundary can fall inside a group of leads sharing the same timestamp, and
// a plain "strictly greater than the last timestamp" cursor would drop the
// unvisited members of that group. Each fetch therefore rescues the
// boundary ties first, then fills the remainder of the page with leads
// strictly beyond the cursor's sort key.
//
// Leads inserted behind the cursor position after traversal has passed it
// are never visited; the walk is snapshot-consistent only with respect to
// already-visited boundaries.
type Paginator struct {
	source interfaces.LeadSource
}

// NewPaginator creates a paginator over the given lead source
func NewPaginator(source interfaces.LeadSource) *Paginator {
	return &Paginator{source: source}
}

// Next returns the next page of up to batchSize leads strictly after cursor
// in the combined traversal order, and the cursor for the subsequent call
// (the compound key of the page's last lead). An empty page signals that
// the traversal is complete; the returned cursor is then the one passed in.
func (p *Paginator) Next(ctx context.Context, order models.SortOrder, cursor *models.Cursor, batchSize int) ([]*models.Lead, *models.Cursor, error) {
	if batchSize <= 0 {
		return nil, cursor, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	var page []*models.Lead

	if cursor == nil {
		leads, err := p.source.LeadsAfter(ctx, order, time.Time{}, batchSize)
		if err != nil {
			return nil, cursor, fmt.Errorf("fetch first page: %w", err)
		}
		page = leads
	} else {
		// Boundary ties first: leads sharing the cursor's sort key that the
		// previous page stopped short of.
		ties, err := p.source.LeadsAtKey(ctx, order, cursor.SortKey, cursor.TiebreakID, batchSize)
		if err != nil {
			return nil, cursor, fmt.Errorf("fetch boundary ties: %w", err)
		}
		page = ties

		if len(page) < batchSize {
			rest, err := p.source.LeadsAfter(ctx, order, cursor.SortKey, batchSize-len(page))
			if err != nil {
				return nil, cursor, fmt.Errorf("fetch page: %w", err)
			}
			page = append(page, rest...)
		}
	}

	if len(page) == 0 {
		return nil, cursor, nil
	}

	if err := checkTiebreakUnique(page, cursor); err != nil {
		return nil, cursor, err
	}

	last := page[len(page)-1]
	next := &models.Cursor{
		SortKey:    last.CreatedAt,
		TiebreakID: last.ID,
	}
	return page, next, nil
}

// checkTiebreakUnique validates the hard precondition that lead IDs are a
// true unique key: a duplicate compound key would make the cursor ambiguous
// and silently loop or skip.
func checkTiebreakUnique(page []*models.Lead, cursor *models.Cursor) error {
	seen := make(map[string]struct{}, len(page))
	for _, lead := range page {
		if _, dup := seen[lead.ID]; dup {
			return fmt.Errorf("duplicate tiebreak id %s in page", lead.ID)
		}
		seen[lead.ID] = struct{}{}
	}
	if cursor != nil {
		if _, dup := seen[cursor.TiebreakID]; dup {
			return fmt.Errorf("page revisited cursor tiebreak id %s", cursor.TiebreakID)
		}
	}
	return nil
}
