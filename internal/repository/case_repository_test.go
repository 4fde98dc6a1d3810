package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlaw/immigration-crm-api/internal/models"
)

func newCaseMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func caseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "case_number", "client_name", "client_email", "client_phone",
		"passport_number", "passport_expiry", "service_type", "tier", "priority",
		"status", "assigned_to", "lead_id", "sms_enabled", "created_at", "updated_at",
	})
}

func TestCaseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectExec("INSERT INTO cases").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c := &models.Case{
		CaseNumber:  "IMM-2026-48213",
		ClientName:  "Maria Santos",
		ClientEmail: "maria@example.com",
		ClientPhone: "+15550100",
		ServiceType: models.ServiceVisaApplication,
		Tier:        models.TierStandard,
		Priority:    models.PriorityHigh,
		Status:      models.CaseStatusInitiated,
	}
	err := repo.Create(context.Background(), c)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryGetByNumber(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM cases WHERE case_number").
		WithArgs("IMM-2026-48213").
		WillReturnRows(caseRows().AddRow(
			"case-1", "IMM-2026-48213", "Maria Santos", "maria@example.com", "+15550100",
			nil, nil, "VISA_APPLICATION", "standard", "HIGH",
			"INITIATED", nil, nil, true, now, now,
		))

	c, err := repo.GetByNumber(context.Background(), "IMM-2026-48213")
	require.NoError(t, err)
	assert.Equal(t, "case-1", c.ID)
	assert.Equal(t, models.CaseStatusInitiated, c.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryUpdateStatusGuarded(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	ts := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cases SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs(models.CaseStatusDocumentsPending, ts, "case-1", models.CaseStatusInitiated).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.UpdateStatus(context.Background(), "case-1", models.CaseStatusInitiated, models.CaseStatusDocumentsPending, ts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryUpdateStatusStaleGuard(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	ts := time.Now().UTC()
	mock.ExpectExec("UPDATE cases SET status").
		WithArgs(models.CaseStatusDocumentsPending, ts, "case-1", models.CaseStatusInitiated).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.UpdateStatus(context.Background(), "case-1", models.CaseStatusInitiated, models.CaseStatusDocumentsPending, ts)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryList(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM cases WHERE status IN (.+) ORDER BY created_at DESC LIMIT 50 OFFSET 0").
		WithArgs(models.CaseStatusInProgress).
		WillReturnRows(caseRows().AddRow(
			"case-2", "IMM-2026-90001", "Amir Khan", "amir@example.com", "+15550101",
			nil, nil, "GREEN_CARD", "premium", "MEDIUM",
			"IN_PROGRESS", nil, nil, false, now, now,
		))

	cases, err := repo.List(context.Background(), models.CaseFilter{Status: []models.CaseStatus{models.CaseStatusInProgress}})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, models.CaseStatusInProgress, cases[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryExistsByNumber(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM cases WHERE case_number = $1)")).
		WithArgs("IMM-2026-48213").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByNumber(context.Background(), "IMM-2026-48213")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryWithPassportExpiringOn(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	day := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	expiry := start.Add(6 * time.Hour)
	passport := "P1234567"
	mock.ExpectQuery("SELECT (.+) FROM cases\\s+WHERE passport_expiry >= ").
		WithArgs(start, start.Add(24*time.Hour), models.CaseStatusRejected, models.CaseStatusCompleted, 100).
		WillReturnRows(caseRows().AddRow(
			"case-3", "IMM-2026-55555", "Lena Okafor", "lena@example.com", "+15550102",
			passport, expiry, "CITIZENSHIP", "basic", "LOW",
			"DOCUMENTS_PENDING", nil, nil, true, day, day,
		))

	cases, err := repo.WithPassportExpiringOn(context.Background(), day, 100)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "case-3", cases[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
