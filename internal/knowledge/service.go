package knowledge

import (
	"github.com/hbomb79/Mnemo/internal/database"
	"github.com/jmoiron/sqlx"
)

// Service binds a Store to a database connection. Every mutation
// is committed in its own transaction before returning.
type Service struct {
	db           database.Manager
	store        *Store
	dedupeFrames bool
}

func NewService(db database.Manager) *Service {
	return &Service{db: db, store: &Store{}}
}

// WithFrameDedupe causes frame samples recorded through this service to replace
// any existing sample for the same item and timestamp.
func (service *Service) WithFrameDedupe(enabled bool) *Service {
	service.dedupeFrames = enabled
	return service
}

func (service *Service) UpsertItem(item *Item) error {
	return service.db.WrapTx(func(tx *sqlx.Tx) error {
		return service.store.UpsertItem(tx, item)
	})
}

func (service *Service) AddTranscript(itemID string, language string, text string) error {
	return service.db.WrapTx(func(tx *sqlx.Tx) error {
		return service.store.AddTranscript(tx, itemID, language, text)
	})
}

func (service *Service) AddFrameSample(itemID string, timestamp float64, path string) error {
	return service.db.WrapTx(func(tx *sqlx.Tx) error {
		if service.dedupeFrames {
			return service.store.ReplaceFrameSample(tx, itemID, timestamp, path)
		}

		return service.store.AddFrameSample(tx, itemID, timestamp, path)
	})
}

func (service *Service) GetItem(itemID string) (*Item, error) {
	return service.store.GetItem(service.db.GetSqlxDb(), itemID)
}

func (service *Service) ListItems() ([]*Item, error) {
	return service.store.ListItems(service.db.GetSqlxDb())
}

func (service *Service) ListTranscripts(itemID string) ([]*Transcript, error) {
	return service.store.ListTranscripts(service.db.GetSqlxDb(), itemID)
}

func (service *Service) ListFrameSamples(itemID string) ([]*FrameSample, error) {
	return service.store.ListFrameSamples(service.db.GetSqlxDb(), itemID)
}

func (service *Service) Search(query string) ([]*SearchResult, error) {
	return service.store.Search(service.db.GetSqlxDb(), query)
}

func (service *Service) Stats() (Stats, error) {
	return service.store.Stats(service.db.GetSqlxDb())
}
