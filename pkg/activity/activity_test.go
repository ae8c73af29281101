package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

func testRecord() *models.GenerationRecord {
	rec := models.NewGenerationRecord(models.GeneratorBranchPOC, "auditor")
	rec.OutputName = "14 Pune.xlsx"
	rec.ImagesFound = 5
	rec.ImagesPlaced = 4
	rec.ImagesSkipped = 1
	rec.Duration = 1500 * time.Millisecond
	return rec
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, rec *models.GenerationRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func TestInitializeSchema(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectExec("CREATE TABLE IF NOT EXISTS report_generations").WillReturnResult(sqlmock.NewResult(0, 0))
	sqlMock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_report_generations_created_at").WillReturnResult(sqlmock.NewResult(0, 0))

	r := newPostgresRecorder(db)
	assert.NoError(t, r.initializeSchema(context.Background()))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresRecord(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := testRecord()
	sqlMock.ExpectExec("INSERT INTO report_generations").
		WithArgs(rec.ID, "branch_poc", nil, "auditor", "14 Pune.xlsx", 5, 4, 1, int64(1500), "succeeded", nil, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := newPostgresRecorder(db)
	assert.NoError(t, r.Record(context.Background(), rec))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresRecordError(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectExec("INSERT INTO report_generations").WillReturnError(errors.New("connection reset"))

	err = newPostgresRecorder(db).Record(context.Background(), testRecord())
	assert.ErrorContains(t, err, "failed to store generation record")
}

func TestPostgresRecent(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "generator", "module", "requested_by", "output_name",
		"images_found", "images_placed", "images_skipped", "duration_ms", "status", "error", "created_at"}).
		AddRow("a", "questionnaire", "antivirus", nil, "Antivirus Review.xlsx", 0, 0, 0, 20, "succeeded", nil, created).
		AddRow("b", "gap_annexure", nil, "bob", "", 3, 0, 0, 5, "failed", "boom", created)
	sqlMock.ExpectQuery("SELECT (.+) FROM report_generations ORDER BY created_at DESC LIMIT").WithArgs(50).WillReturnRows(rows)

	records, err := newPostgresRecorder(db).Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "antivirus", records[0].Module)
	assert.Equal(t, 20*time.Millisecond, records[0].Duration)
	assert.Equal(t, models.GenerationFailed, records[1].Status)
	assert.Equal(t, "boom", records[1].Error)
	assert.Equal(t, "bob", records[1].RequestedBy)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

type fakeConn struct {
	subject string
	data    []byte
	err     error
	closed  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return f.err
}

func (f *fakeConn) FlushWithContext(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("context must have a deadline")
	}
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestNATSPublisher(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, "", nil)
	rec := testRecord()

	require.NoError(t, p.Record(context.Background(), rec))
	assert.Equal(t, DefaultSubject, conn.subject)

	var event GenerationEvent
	require.NoError(t, json.Unmarshal(conn.data, &event))
	assert.Equal(t, "report.succeeded", event.EventType)
	assert.Equal(t, rec.ID, event.Record.ID)
	assert.Equal(t, 4, event.Record.ImagesPlaced)

	conn.err = errors.New("no responders")
	assert.ErrorContains(t, p.Record(context.Background(), rec), "failed to publish")

	p.Close()
	assert.True(t, conn.closed)
}

func TestMulti(t *testing.T) {
	ok := &mockRecorder{}
	failing := &mockRecorder{}
	rec := testRecord()
	ok.On("Record", mock.Anything, rec).Return(nil)
	failing.On("Record", mock.Anything, rec).Return(errors.New("down"))

	err := Multi{failing, nil, ok}.Record(context.Background(), rec)
	assert.ErrorContains(t, err, "down")
	ok.AssertExpectations(t)
	failing.AssertExpectations(t)

	assert.NoError(t, Nop{}.Record(context.Background(), rec))
}

func TestBreaker(t *testing.T) {
	sink := &mockRecorder{}
	rec := testRecord()
	b := NewBreaker("postgres", sink, BreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute, Timeout: time.Second})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	sink.On("Record", mock.Anything, rec).Return(errors.New("down")).Twice()
	assert.Error(t, b.Record(context.Background(), rec))
	assert.Equal(t, CircuitStateClosed, b.Stats().State)
	assert.Error(t, b.Record(context.Background(), rec))
	assert.Equal(t, CircuitStateOpen, b.Stats().State)

	err := b.Record(context.Background(), rec)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int64(1), b.Stats().Dropped)

	now = now.Add(2 * time.Minute)
	sink.On("Record", mock.Anything, rec).Return(nil).Once()
	assert.NoError(t, b.Record(context.Background(), rec))
	stats := b.Stats()
	assert.Equal(t, CircuitStateClosed, stats.State)
	assert.Zero(t, stats.Failures)
	sink.AssertExpectations(t)
}
