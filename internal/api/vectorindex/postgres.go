package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

// DB is the slice of pgxpool.Pool the index needs; pgxmock satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Index = (*Postgres)(nil)

// Postgres is the pgvector-backed index. Schema creation is lazy: the first
// operation creates the extension and table, so a fresh database needs no
// out-of-band migration.
type Postgres struct {
	logger   *slog.Logger
	db       DB
	embedder Embedder

	initOnce sync.Once
	initErr  error
}

func NewPostgres(db DB, embedder Embedder, logger *slog.Logger) *Postgres {
	return &Postgres{logger: logger, db: db, embedder: embedder}
}

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS poi_embeddings (
    poi_id          text PRIMARY KEY,
    name            text NOT NULL,
    category        text NOT NULL,
    description     text NOT NULL DEFAULT '',
    address         text NOT NULL DEFAULT '',
    city            text NOT NULL DEFAULT '',
    latitude        double precision NOT NULL DEFAULT 0,
    longitude       double precision NOT NULL DEFAULT 0,
    google_place_id text NOT NULL DEFAULT '',
    rating          double precision NOT NULL DEFAULT 0,
    rating_count    integer NOT NULL DEFAULT 0,
    price_level     text NOT NULL DEFAULT '',
    opening_hours   text NOT NULL DEFAULT '[]',
    raw_text        text NOT NULL DEFAULT '',
    types           text NOT NULL DEFAULT '[]',
    source          text NOT NULL DEFAULT '',
    created_at      timestamptz NOT NULL DEFAULT now(),
    embedding       vector
);
CREATE INDEX IF NOT EXISTS poi_embeddings_city_idx ON poi_embeddings (city);
`

func (p *Postgres) ensureSchema(ctx context.Context) error {
	p.initOnce.Do(func() {
		if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
			p.initErr = fmt.Errorf("initialising poi_embeddings schema: %w", err)
		}
	})
	return p.initErr
}

func (p *Postgres) Add(ctx context.Context, rec types.PoiRecord) error {
	_, err := p.AddBatch(ctx, []types.PoiRecord{rec})
	return err
}

// AddBatch inserts records that are not yet present and reports how many rows
// were actually written. In-batch duplicates keep the first occurrence; rows
// already in the table are filtered before embedding so re-runs cost nothing.
func (p *Postgres) AddBatch(ctx context.Context, recs []types.PoiRecord) (int, error) {
	ctx, span := otel.Tracer("VectorIndex").Start(ctx, "AddBatch", trace.WithAttributes(
		attribute.Int("batch.size", len(recs)),
	))
	defer span.End()

	l := p.logger.With(slog.String("method", "AddBatch"))

	batch := dedupeBatch(recs)
	if len(batch) == 0 {
		return 0, nil
	}
	if err := p.ensureSchema(ctx); err != nil {
		return 0, err
	}

	ids := make([]string, len(batch))
	for i, rec := range batch {
		ids[i] = rec.PoiID
	}
	rows, err := p.db.Query(ctx, `SELECT poi_id FROM poi_embeddings WHERE poi_id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("checking existing poi ids: %w", err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning existing poi id: %w", err)
		}
		existing[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reading existing poi ids: %w", err)
	}

	fresh := make([]types.PoiRecord, 0, len(batch))
	for _, rec := range batch {
		if !existing[rec.PoiID] {
			fresh = append(fresh, rec)
		}
	}
	if len(fresh) == 0 {
		l.DebugContext(ctx, "All records already indexed", slog.Int("batch", len(batch)))
		return 0, nil
	}

	texts := make([]string, len(fresh))
	for i, rec := range fresh {
		texts[i] = embeddingText(rec)
	}
	vecs, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding batch: %w", err)
	}

	inserted := 0
	for i, rec := range fresh {
		hoursJSON, err := json.Marshal(rec.OpeningHours)
		if err != nil {
			return inserted, fmt.Errorf("encoding opening hours for %s: %w", rec.PoiID, err)
		}
		typesJSON, err := json.Marshal(rec.Types)
		if err != nil {
			return inserted, fmt.Errorf("encoding types for %s: %w", rec.PoiID, err)
		}
		tag, err := p.db.Exec(ctx, `
            INSERT INTO poi_embeddings (
                poi_id, name, category, description, address, city,
                latitude, longitude, google_place_id, rating, rating_count,
                price_level, opening_hours, raw_text, types, source, created_at, embedding
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18::vector)
            ON CONFLICT (poi_id) DO NOTHING`,
			rec.PoiID, rec.Name, string(rec.Category), rec.Description, rec.Address, rec.City,
			rec.Latitude, rec.Longitude, rec.GooglePlaceID, rec.Rating, rec.RatingCount,
			rec.PriceLevel, string(hoursJSON), rec.RawText, string(typesJSON), string(rec.Source),
			rec.CreatedAt, vectorLiteral(vecs[i]),
		)
		if err != nil {
			return inserted, fmt.Errorf("inserting poi %s: %w", rec.PoiID, err)
		}
		inserted += int(tag.RowsAffected())
	}

	l.DebugContext(ctx, "Indexed POI batch", slog.Int("inserted", inserted), slog.Int("batch", len(batch)))
	span.SetAttributes(attribute.Int("batch.inserted", inserted))
	return inserted, nil
}

func (p *Postgres) SearchByText(ctx context.Context, query string, k int, cityFilter string) ([]Hit, error) {
	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return p.SearchByVector(ctx, vec, k, cityFilter)
}

func (p *Postgres) SearchByVector(ctx context.Context, vec []float32, k int, cityFilter string) ([]Hit, error) {
	ctx, span := otel.Tracer("VectorIndex").Start(ctx, "SearchByVector", trace.WithAttributes(
		attribute.Int("limit", k),
		attribute.String("city_filter", cityFilter),
	))
	defer span.End()

	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := p.db.Query(ctx, `
        SELECT
            poi_id, name, category, description, address, city,
            latitude, longitude, google_place_id, rating, rating_count,
            price_level, opening_hours, raw_text, types, source, created_at,
            1 - (embedding <=> $1::vector) AS relevance
        FROM poi_embeddings
        WHERE ($2 = '' OR city ILIKE $2)
        ORDER BY embedding <=> $1::vector
        LIMIT $3`,
		vectorLiteral(vec), cityFilter, k,
	)
	if err != nil {
		return nil, fmt.Errorf("querying similar pois: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var rec types.PoiRecord
		var category, source, hoursJSON, typesJSON string
		var relevance float64
		err := rows.Scan(
			&rec.PoiID, &rec.Name, &category, &rec.Description, &rec.Address, &rec.City,
			&rec.Latitude, &rec.Longitude, &rec.GooglePlaceID, &rec.Rating, &rec.RatingCount,
			&rec.PriceLevel, &hoursJSON, &rec.RawText, &typesJSON, &source, &rec.CreatedAt,
			&relevance,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning poi row: %w", err)
		}
		rec.Category = types.Category(category)
		rec.Source = types.PoiSource(source)
		if err := json.Unmarshal([]byte(hoursJSON), &rec.OpeningHours); err != nil {
			return nil, fmt.Errorf("decoding opening hours for %s: %w", rec.PoiID, err)
		}
		if err := json.Unmarshal([]byte(typesJSON), &rec.Types); err != nil {
			return nil, fmt.Errorf("decoding types for %s: %w", rec.PoiID, err)
		}
		hits = append(hits, hitFromRecord(rec, relevance))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading poi rows: %w", err)
	}
	return hits, nil
}

func (p *Postgres) Size(ctx context.Context) (int, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := p.db.QueryRow(ctx, `SELECT count(*) FROM poi_embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting pois: %w", err)
	}
	return count, nil
}

// BackfillEmbeddings embeds rows whose embedding column is NULL, in batches,
// and reports how many rows were updated. Rows land without a vector after
// bulk imports or when a model switch clears the column.
func (p *Postgres) BackfillEmbeddings(ctx context.Context, batchSize int) (int, error) {
	ctx, span := otel.Tracer("VectorIndex").Start(ctx, "BackfillEmbeddings")
	defer span.End()

	if batchSize <= 0 {
		batchSize = 20
	}
	if err := p.ensureSchema(ctx); err != nil {
		return 0, err
	}

	l := p.logger.With(slog.String("method", "BackfillEmbeddings"))

	type pendingRow struct {
		id   string
		text string
	}
	updated := 0
	for {
		rows, err := p.db.Query(ctx, `
            SELECT poi_id, name, description, raw_text
            FROM poi_embeddings
            WHERE embedding IS NULL
            ORDER BY poi_id
            LIMIT $1`, batchSize)
		if err != nil {
			return updated, fmt.Errorf("selecting rows without embeddings: %w", err)
		}
		var batch []pendingRow
		for rows.Next() {
			var id, name, description, rawText string
			if err := rows.Scan(&id, &name, &description, &rawText); err != nil {
				rows.Close()
				return updated, fmt.Errorf("scanning row without embedding: %w", err)
			}
			rec := types.PoiRecord{Name: name, Description: description, RawText: rawText}
			batch = append(batch, pendingRow{id: id, text: embeddingText(rec)})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return updated, fmt.Errorf("reading rows without embeddings: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		texts := make([]string, len(batch))
		for i, row := range batch {
			texts[i] = row.text
		}
		vecs, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return updated, fmt.Errorf("embedding backfill batch: %w", err)
		}
		for i, row := range batch {
			if _, err := p.db.Exec(ctx,
				`UPDATE poi_embeddings SET embedding = $1::vector WHERE poi_id = $2`,
				vectorLiteral(vecs[i]), row.id,
			); err != nil {
				return updated, fmt.Errorf("updating embedding for %s: %w", row.id, err)
			}
			updated++
		}
		l.InfoContext(ctx, "Backfilled embedding batch",
			slog.Int("batch", len(batch)), slog.Int("total", updated))

		if len(batch) < batchSize {
			break
		}
	}

	span.SetAttributes(attribute.Int("backfill.updated", updated))
	return updated, nil
}

// vectorLiteral renders a pgvector input literal, e.g. "[0.1,0.2]".
// Shortest-round-trip formatting keeps the full float32 precision of each
// component; pgvector accepts exponent notation.
func vectorLiteral(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
