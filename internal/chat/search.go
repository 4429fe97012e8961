package chat

import (
	"context"
	"strings"
)

// SearchContacts resolves a free-text email fragment to matching directory
// contacts. A blank fragment short-circuits to an empty result here, so
// callers need no guard of their own. The current user never appears in the
// results even when their own email matches.
func (c *Controller) SearchContacts(ctx context.Context, fragment string) ([]Contact, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, nil
	}

	hits, err := c.dir.SearchByEmailPrefix(ctx, fragment)
	if err != nil {
		return nil, err
	}

	out := hits[:0]
	for _, h := range hits {
		if h.ID == c.identity.UserID {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}
