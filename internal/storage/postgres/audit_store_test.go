package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

var auditColumnNames = []string{
	"id", "user_id", "url", "domain", "created_at",
	"accessibility_score", "critical_count", "serious_count", "moderate_count", "minor_count",
	"total_violations", "total_passes", "wcag_breakdown", "violations", "page_title", "page_language",
	"technical_seo", "on_page_seo", "content_marketing", "local_seo", "overall_score",
	"fact_check_score", "fact_checked", "issues", "nap",
}

func sampleRecord(now time.Time) prospect.AuditRecord {
	return prospect.AuditRecord{
		ID:                 "audit-1",
		UserID:             "user-1",
		URL:                "https://www.example.com",
		Domain:             "example.com",
		CreatedAt:          now,
		AccessibilityScore: 83,
		CriticalCount:      1,
		SeriousCount:       1,
		ModerateCount:      1,
		TotalViolations:    3,
		TotalPasses:        20,
		WCAG:               prospect.WCAGBreakdown{Perceivable: 2, Robust: 1},
		Violations: []prospect.Violation{
			{ID: "image-alt", Impact: prospect.ImpactCritical, Description: "Images must have alternate text", Nodes: 2},
		},
		PageTitle:      "Example",
		PageLanguage:   "en",
		Scores:         prospect.NewScoreBreakdown(30, 20, 10, 5),
		FactCheckScore: 0,
		Issues: []prospect.SeoIssue{
			{Category: prospect.CategoryContent, Issue: "No blog", Severity: prospect.SeverityHigh, Fix: "Start one"},
		},
		NAP: prospect.NAPDetails{Phone: "(512) 555-0100"},
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func recordRow(t *testing.T, rows *pgxmock.Rows, rec prospect.AuditRecord) *pgxmock.Rows {
	t.Helper()
	return rows.AddRow(
		rec.ID, rec.UserID, rec.URL, rec.Domain, rec.CreatedAt,
		rec.AccessibilityScore, rec.CriticalCount, rec.SeriousCount, rec.ModerateCount, rec.MinorCount,
		rec.TotalViolations, rec.TotalPasses, mustJSON(t, rec.WCAG), mustJSON(t, rec.Violations),
		rec.PageTitle, rec.PageLanguage,
		rec.Scores.TechnicalSEO, rec.Scores.OnPageSEO, rec.Scores.ContentMarketing, rec.Scores.LocalSEO,
		rec.Scores.Overall, rec.FactCheckScore, rec.FactChecked, mustJSON(t, rec.Issues), mustJSON(t, rec.NAP),
	)
}

func TestCreateAuditRecordInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord(time.Unix(1700000000, 0).UTC())
	mock.ExpectExec("INSERT INTO audit_records").
		WithArgs(
			rec.ID, rec.UserID, rec.URL, rec.Domain, rec.CreatedAt,
			rec.AccessibilityScore, rec.CriticalCount, rec.SeriousCount, rec.ModerateCount, rec.MinorCount,
			rec.TotalViolations, rec.TotalPasses,
			[]byte(`{"perceivable":2,"operable":0,"understandable":0,"robust":1}`),
			mustJSON(t, rec.Violations),
			rec.PageTitle, rec.PageLanguage,
			rec.Scores.TechnicalSEO, rec.Scores.OnPageSEO, rec.Scores.ContentMarketing, rec.Scores.LocalSEO,
			rec.Scores.Overall, rec.FactCheckScore, rec.FactChecked,
			mustJSON(t, rec.Issues),
			[]byte(`{"phone":"(512) 555-0100"}`),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	got, err := store.CreateAuditRecord(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditRecordEncodesNilListsAsArrays(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord(time.Unix(1700000000, 0).UTC())
	rec.Violations = nil
	rec.Issues = nil

	args := make([]any, len(auditColumnNames))
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	args[13] = []byte(`[]`)
	args[23] = []byte(`[]`)
	mock.ExpectExec("INSERT INTO audit_records").WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err = store.CreateAuditRecord(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditRecordRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	_, err = store.CreateAuditRecord(context.Background(), prospect.AuditRecord{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditRecordWrapsExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO audit_records").WillReturnError(boom)

	_, err = store.CreateAuditRecord(context.Background(), sampleRecord(time.Now().UTC()))
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "insert audit record")
}

func TestGetAuditRecordsByUserScansRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	newer := sampleRecord(now)
	older := sampleRecord(now.Add(-time.Hour))
	older.ID = "audit-0"

	rows := pgxmock.NewRows(auditColumnNames)
	recordRow(t, rows, newer)
	recordRow(t, rows, older)
	mock.ExpectQuery("SELECT (.+) FROM audit_records WHERE user_id").
		WithArgs("user-1", 5).
		WillReturnRows(rows)

	got, err := store.GetAuditRecordsByUser(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, newer, got[0])
	require.Equal(t, "audit-0", got[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAuditRecordsByUserDefaultsLimit(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM audit_records WHERE user_id").
		WithArgs("user-1", DefaultListLimit).
		WillReturnRows(pgxmock.NewRows(auditColumnNames))

	got, err := store.GetAuditRecordsByUser(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAuditRecordByID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord(time.Unix(1700000000, 0).UTC())
	mock.ExpectQuery("SELECT (.+) FROM audit_records WHERE id").
		WithArgs(rec.ID).
		WillReturnRows(recordRow(t, pgxmock.NewRows(auditColumnNames), rec))

	got, err := store.GetAuditRecordByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAuditRecordByIDNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM audit_records WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetAuditRecordByID(context.Background(), "missing")
	require.ErrorIs(t, err, prospect.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssetReference(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	asset := prospect.Asset{
		ID:          "asset-1",
		UserID:      "user-1",
		AuditID:     "audit-1",
		Kind:        prospect.AssetKindReport,
		URI:         "gs://reports/audit-1.pdf",
		ContentHash: "abc",
		SizeBytes:   2048,
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
	}
	mock.ExpectExec("INSERT INTO assets").
		WithArgs(asset.ID, asset.UserID, asset.AuditID, asset.Kind, asset.URI,
			asset.ContentHash, asset.SizeBytes, asset.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	got, err := store.CreateAssetReference(context.Background(), asset)
	require.NoError(t, err)
	require.Equal(t, asset, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogUsageInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO usage_logs").
		WithArgs("user-1", prospect.OperationDiscovery, 0.75, 0, []byte(`{"leads":15}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO usage_logs").
		WithArgs("user-1", prospect.OperationAudit, 0.0, 0, []byte(`{}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.LogUsage(context.Background(), prospect.UsageEvent{
		UserID:        "user-1",
		OperationType: prospect.OperationDiscovery,
		CostUSD:       0.75,
		Metadata:      map[string]any{"leads": 15},
	}))
	require.NoError(t, store.LogUsage(context.Background(), prospect.UsageEvent{
		UserID:        "user-1",
		OperationType: prospect.OperationAudit,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStoreWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewStoreWithPool(nil)
	require.Error(t, err)
}

func TestConnectRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), Config{})
	require.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	migrations, err := Migrations()
	require.NoError(t, err)

	entries, err := fs.ReadDir(migrations, ".")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, entry := range entries {
		data, err := fs.ReadFile(migrations, entry.Name())
		require.NoError(t, err)
		body := string(data)
		require.True(t, strings.Contains(body, "-- +goose Up"), entry.Name())
		require.True(t, strings.Contains(body, "-- +goose Down"), entry.Name())
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectPing()
	require.NoError(t, store.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	require.ErrorContains(t, store.Ping(context.Background()), "ping postgres")
	require.NoError(t, mock.ExpectationsWereMet())
}
