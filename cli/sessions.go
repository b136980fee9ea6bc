// Stored chat session management.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/richinex/apiagent/storage"
)

// ListSessions prints stored sessions, most recently updated first, with
// their message counts.
func ListSessions(ctx context.Context, store storage.ConversationStorage, out io.Writer) error {
	ids, err := store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No saved sessions.")
		return nil
	}

	for _, id := range ids {
		history, err := store.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load session '%s': %w", id, err)
		}
		fmt.Fprintf(out, "%s (%d messages)\n", id, len(history))
	}
	return nil
}

// DeleteSession removes a stored session. Deleting an unknown session is an
// error so typos are reported.
func DeleteSession(ctx context.Context, store storage.ConversationStorage, id string, out io.Writer) error {
	exists, err := store.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up session '%s': %w", id, err)
	}
	if !exists {
		return fmt.Errorf("session '%s' not found", id)
	}

	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session '%s': %w", id, err)
	}
	fmt.Fprintf(out, "Deleted session '%s'\n", id)
	return nil
}
