package vectorindex

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-planner/internal/types"
)

// anyArgs builds n placeholder matchers; pgxmock requires the argument count
// to be declared even when the values themselves are not asserted.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newPostgresIndex(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPostgres(mock, NewHashingEmbedder(8), logger), mock
}

func TestPostgresAddBatch_SkipsExistingRows(t *testing.T) {
	idx, mock := newPostgresIndex(t)

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT poi_id FROM poi_embeddings").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"poi_id"}).AddRow("already-there"))
	mock.ExpectExec("INSERT INTO poi_embeddings").
		WithArgs(anyArgs(18)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := idx.AddBatch(context.Background(), []types.PoiRecord{
		record("already-there", "Old POI", "Seoul"),
		record("brand-new", "New POI", "Seoul"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddBatch_EmptyAfterDedupe(t *testing.T) {
	idx, mock := newPostgresIndex(t)

	inserted, err := idx.AddBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	// An empty batch must not touch the database at all.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSearchByVector_ReconstructsRecord(t *testing.T) {
	idx, mock := newPostgresIndex(t)
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("FROM poi_embeddings").
		WithArgs(anyArgs(3)...).
		WillReturnRows(pgxmock.NewRows([]string{
			"poi_id", "name", "category", "description", "address", "city",
			"latitude", "longitude", "google_place_id", "rating", "rating_count",
			"price_level", "opening_hours", "raw_text", "types", "source", "created_at",
			"relevance",
		}).AddRow(
			"abc123", "Gwangjang Market", "attraction", "street food", "88 Changgyeonggung-ro", "Seoul",
			37.57, 127.0, "place-1", 4.5, 1200,
			"₩10,000 ~ ₩20,000", `[{"day":1,"is_closed":false,"slots":[{"open":"09:00","close":"22:00"}]}]`,
			"Gwangjang Market street food", `["market","food"]`, "web", created,
			1.2,
		))

	hits, err := idx.SearchByVector(context.Background(), []float32{0.1, 0.2}, 5, "Seoul")

	require.NoError(t, err)
	require.Len(t, hits, 1)
	rec := hits[0].Record
	assert.Equal(t, "abc123", rec.PoiID)
	assert.Equal(t, types.CategoryAttraction, rec.Category)
	assert.Equal(t, []string{"market", "food"}, rec.Types)
	require.Len(t, rec.OpeningHours, 1)
	assert.Equal(t, 1, rec.OpeningHours[0].Day)
	require.Len(t, rec.OpeningHours[0].Slots, 1)
	assert.Equal(t, "09:00", rec.OpeningHours[0].Slots[0].Open)
	// Relevance above 1 from the store is clamped.
	assert.Equal(t, 1.0, hits[0].Candidate.Relevance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSize(t *testing.T) {
	idx, mock := newPostgresIndex(t)

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT count").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	size, err := idx.Size(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, size)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackfillEmbeddings_DrainsInBatches(t *testing.T) {
	idx, mock := newPostgresIndex(t)

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	// First batch fills up, so a second select runs; its short batch ends the loop.
	mock.ExpectQuery("SELECT poi_id, name, description, raw_text").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"poi_id", "name", "description", "raw_text"}).
			AddRow("null-1", "First Stop", "street food", "First Stop raw text").
			AddRow("null-2", "Second Stop", "", ""))
	mock.ExpectExec("UPDATE poi_embeddings SET embedding").
		WithArgs(anyArgs(2)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE poi_embeddings SET embedding").
		WithArgs(anyArgs(2)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT poi_id, name, description, raw_text").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"poi_id", "name", "description", "raw_text"}).
			AddRow("null-3", "Third Stop", "market hall", ""))
	mock.ExpectExec("UPDATE poi_embeddings SET embedding").
		WithArgs(anyArgs(2)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	updated, err := idx.BackfillEmbeddings(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, 3, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackfillEmbeddings_NothingMissing(t *testing.T) {
	idx, mock := newPostgresIndex(t)

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT poi_id, name, description, raw_text").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"poi_id", "name", "description", "raw_text"}))

	updated, err := idx.BackfillEmbeddings(context.Background(), 20)

	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.5,1]", vectorLiteral([]float32{0.5, 1}))
	// Tiny components survive without rounding to zero.
	assert.Equal(t, "[1.25e-05]", vectorLiteral([]float32{1.25e-5}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}
