// Package knowledge persists downloaded items, their transcripts and their frame
// samples, and answers substring searches over the transcript text.
package knowledge

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/hbomb79/Mnemo/internal/database"
	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/hbomb79/Mnemo/pkg/logger"
)

// MaxDescriptionLength is the number of characters of an items
// description that are retained.
const MaxDescriptionLength = 500

var (
	ErrItemNotFound = errors.New("item does not exist")

	log = logger.Get("KnowledgeStore")
)

type (
	MediaFormat string

	// Item is a single downloaded media unit, keyed by the identifier
	// the source assigned to it.
	Item struct {
		ItemID          string      `db:"item_id" json:"item_id"`
		Title           string      `db:"title" json:"title"`
		Uploader        string      `db:"uploader" json:"uploader"`
		DurationSeconds int         `db:"duration_seconds" json:"duration_seconds"`
		PublishDate     string      `db:"publish_date" json:"publish_date"`
		Description     string      `db:"description" json:"description"`
		ThumbnailPath   *string     `db:"thumbnail_path" json:"thumbnail_path"`
		MediaPath       *string     `db:"media_path" json:"media_path"`
		Format          MediaFormat `db:"format" json:"format"`
		FileSize        int64       `db:"file_size" json:"file_size"`
		IngestedAt      time.Time   `db:"ingested_at" json:"ingested_at"`
	}

	Transcript struct {
		ID       int64  `db:"id" json:"id"`
		ItemID   string `db:"item_id" json:"item_id"`
		Language string `db:"language" json:"language"`
		Body     string `db:"body" json:"body"`
	}

	FrameSample struct {
		ID        int64   `db:"id" json:"id"`
		ItemID    string  `db:"item_id" json:"item_id"`
		Timestamp float64 `db:"timestamp_seconds" json:"timestamp_seconds"`
		ImagePath string  `db:"image_path" json:"image_path"`
	}

	// SearchResult is a single transcript matching a search query, combined
	// with the display fields of the item which owns it.
	SearchResult struct {
		ItemID        string    `db:"item_id" json:"item_id"`
		Title         string    `db:"title" json:"title"`
		Uploader      string    `db:"uploader" json:"uploader"`
		ThumbnailPath *string   `db:"thumbnail_path" json:"thumbnail_path"`
		MediaPath     *string   `db:"media_path" json:"media_path"`
		IngestedAt    time.Time `db:"ingested_at" json:"ingested_at"`
		TranscriptID  int64     `db:"transcript_id" json:"transcript_id"`
		Language      string    `db:"language" json:"language"`
		Body          string    `db:"body" json:"-"`
		Snippet       string    `db:"-" json:"snippet"`
	}

	Stats struct {
		Items        int `db:"items" json:"items"`
		Transcripts  int `db:"transcripts" json:"transcripts"`
		FrameSamples int `db:"frame_samples" json:"frame_samples"`
	}

	// Store is stateless. Every method accepts the Queryable to run against,
	// which allows the caller to decide on the transaction boundaries.
	Store struct{}
)

const (
	VIDEO          MediaFormat = "video"
	AUDIO          MediaFormat = "audio"
	SUBTITLES_ONLY MediaFormat = "subtitles_only"
)

func (f MediaFormat) IsValid() bool {
	return f == VIDEO || f == AUDIO || f == SUBTITLES_ONLY
}

// UpsertItem inserts the item, or replaces every column of the existing row
// with the same item ID. A zero IngestedAt is set to the current time, and the
// description is truncated to MaxDescriptionLength characters.
func (store *Store) UpsertItem(db database.Queryable, item *Item) error {
	if item.ItemID == "" {
		return &pipeline.PersistenceError{Op: "upsert item", Err: errors.New("item ID must not be empty")}
	}
	if item.IngestedAt.IsZero() {
		item.IngestedAt = time.Now().UTC()
	}
	item.Description = truncate(item.Description, MaxDescriptionLength)

	_, err := db.NamedExec(`
		INSERT INTO items(item_id, title, uploader, duration_seconds, publish_date, description, thumbnail_path, media_path, format, file_size, ingested_at)
		VALUES (:item_id, :title, :uploader, :duration_seconds, :publish_date, :description, :thumbnail_path, :media_path, :format, :file_size, :ingested_at)
		ON CONFLICT(item_id) DO UPDATE SET
			title            = EXCLUDED.title,
			uploader         = EXCLUDED.uploader,
			duration_seconds = EXCLUDED.duration_seconds,
			publish_date     = EXCLUDED.publish_date,
			description      = EXCLUDED.description,
			thumbnail_path   = EXCLUDED.thumbnail_path,
			media_path       = EXCLUDED.media_path,
			format           = EXCLUDED.format,
			file_size        = EXCLUDED.file_size,
			ingested_at      = EXCLUDED.ingested_at
	`, item)
	if err != nil {
		return &pipeline.PersistenceError{Op: "upsert item", ItemID: item.ItemID, Err: err}
	}

	return nil
}

// AddTranscript appends a transcript for the item. Multiple transcripts for the
// same item and language are permitted.
func (store *Store) AddTranscript(db database.Queryable, itemID string, language string, text string) error {
	_, err := db.Exec(db.Rebind(`INSERT INTO transcripts(item_id, language, body) VALUES (?, ?, ?)`), itemID, language, text)
	if err != nil {
		return &pipeline.PersistenceError{Op: "add transcript", ItemID: itemID, Err: err}
	}

	return nil
}

// AddFrameSample appends a frame sample for the item.
func (store *Store) AddFrameSample(db database.Queryable, itemID string, timestamp float64, path string) error {
	_, err := db.Exec(db.Rebind(`INSERT INTO frame_samples(item_id, timestamp_seconds, image_path) VALUES (?, ?, ?)`), itemID, timestamp, path)
	if err != nil {
		return &pipeline.PersistenceError{Op: "add frame sample", ItemID: itemID, Err: err}
	}

	return nil
}

// ReplaceFrameSample removes any existing samples for the item at exactly the
// timestamp given before inserting the new sample. The caller is expected
// to run this inside of a transaction.
func (store *Store) ReplaceFrameSample(db database.Queryable, itemID string, timestamp float64, path string) error {
	_, err := db.Exec(db.Rebind(`DELETE FROM frame_samples WHERE item_id = ? AND timestamp_seconds = ?`), itemID, timestamp)
	if err != nil {
		return &pipeline.PersistenceError{Op: "replace frame sample", ItemID: itemID, Err: err}
	}

	return store.AddFrameSample(db, itemID, timestamp, path)
}

func (store *Store) GetItem(db database.Queryable, itemID string) (*Item, error) {
	query, args, err := selectItemBuilder().Where(squirrel.Eq{"item_id": itemID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select item query: %w", err)
	}

	var item Item
	if err := db.Get(&item, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}

		return nil, &pipeline.PersistenceError{Op: "get item", ItemID: itemID, Err: err}
	}

	return &item, nil
}

// ListItems returns all items, most recently ingested first.
func (store *Store) ListItems(db database.Queryable) ([]*Item, error) {
	query, args, err := selectItemBuilder().OrderBy("ingested_at DESC", "item_id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list items query: %w", err)
	}

	results := make([]*Item, 0)
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, &pipeline.PersistenceError{Op: "list items", Err: err}
	}

	return results, nil
}

func (store *Store) ListTranscripts(db database.Queryable, itemID string) ([]*Transcript, error) {
	query, args, err := squirrel.
		Select("id", "item_id", "language", "body").
		From("transcripts").
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list transcripts query: %w", err)
	}

	results := make([]*Transcript, 0)
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, &pipeline.PersistenceError{Op: "list transcripts", ItemID: itemID, Err: err}
	}

	return results, nil
}

// ListFrameSamples returns the frame samples for the item in ascending
// timestamp order.
func (store *Store) ListFrameSamples(db database.Queryable, itemID string) ([]*FrameSample, error) {
	query, args, err := squirrel.
		Select("id", "item_id", "timestamp_seconds", "image_path").
		From("frame_samples").
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy("timestamp_seconds ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list frame samples query: %w", err)
	}

	results := make([]*FrameSample, 0)
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, &pipeline.PersistenceError{Op: "list frame samples", ItemID: itemID, Err: err}
	}

	return results, nil
}

// Search finds every transcript whose text contains the query (case-insensitive),
// joined with the item that owns it. An item with several matching transcripts
// yields several results. Results are ordered by the items ingestion time,
// newest first. A blank query matches nothing.
func (store *Store) Search(db database.Queryable, query string) ([]*SearchResult, error) {
	results := make([]*SearchResult, 0)
	if strings.TrimSpace(query) == "" {
		return results, nil
	}

	sqlQuery, args, err := squirrel.
		Select("i.item_id", "i.title", "i.uploader", "i.thumbnail_path", "i.media_path", "i.ingested_at", "t.id AS transcript_id", "t.language", "t.body").
		From("items i").
		Join("transcripts t ON t.item_id = i.item_id").
		Where(`LOWER(t.body) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(query))+"%").
		OrderBy("i.ingested_at DESC", "t.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct search query: %w", err)
	}

	if err := db.Select(&results, db.Rebind(sqlQuery), args...); err != nil {
		return nil, &pipeline.PersistenceError{Op: "search transcripts", Err: err}
	}

	for _, result := range results {
		result.Snippet = Snippet(result.Body, query, DefaultSnippetBudget)
	}

	log.Debugf("Search for %q matched %d transcripts\n", query, len(results))
	return results, nil
}

func (store *Store) Stats(db database.Queryable) (Stats, error) {
	var stats Stats
	err := db.Get(&stats, `
		SELECT
			(SELECT COUNT(*) FROM items) AS items,
			(SELECT COUNT(*) FROM transcripts) AS transcripts,
			(SELECT COUNT(*) FROM frame_samples) AS frame_samples
	`)
	if err != nil {
		return stats, &pipeline.PersistenceError{Op: "count knowledge base", Err: err}
	}

	return stats, nil
}

func selectItemBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("item_id", "title", "uploader", "duration_seconds", "publish_date", "description", "thumbnail_path", "media_path", "format", "file_size", "ingested_at").
		From("items")
}

// escapeLike escapes the LIKE wildcards in the input so it is matched literally
func escapeLike(input string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(input)
}

func truncate(input string, length int) string {
	runes := []rune(input)
	if len(runes) <= length {
		return input
	}

	return string(runes[:length])
}
