// Package storage persists chat sessions between process runs.
//
// Information Hiding:
// - Storage backend hidden behind ConversationStorage
// - Memory and SQLite backends are interchangeable for the chat command

package storage

import (
	"context"

	"github.com/richinex/apiagent/model"
)

// ConversationStorage stores the retained conversation of a session.
type ConversationStorage interface {
	// Save replaces the stored history of a session.
	Save(ctx context.Context, sessionID string, history []model.Message) error

	// Load returns the stored history, oldest first.
	// Unknown sessions yield an empty, non-nil slice and no error.
	Load(ctx context.Context, sessionID string) ([]model.Message, error)

	// Delete removes a session and its history.
	Delete(ctx context.Context, sessionID string) error

	// ListSessions lists session IDs, most recently updated first.
	ListSessions(ctx context.Context) ([]string, error)

	// Exists reports whether a session has been saved.
	Exists(ctx context.Context, sessionID string) (bool, error)
}
