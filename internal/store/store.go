package store

import "github.com/yourorg/asyncdoc/pkg/types"

type Store interface {
	CreateSession(source, origin string) (*types.Session, error)
	GetSession(id string) (*types.Session, error)
	UpdateSessionStatus(id, status string) error
	ListSessions() ([]types.Session, error)
	DeleteSession(id string) error

	SaveMessages(sessionID string, messages []types.StoredMessage) error
	GetMessages(sessionID string) ([]types.StoredMessage, error)

	Close() error
}
