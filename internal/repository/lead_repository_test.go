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

func newLeadMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func leadRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "email", "phone", "alternate_phone",
		"source", "status", "priority", "assigned_to", "converted_case_id",
		"converted_at", "created_at", "updated_at",
	})
}

func TestLeadRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectExec("INSERT INTO leads").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	lead := &models.Lead{
		FirstName: "Diego",
		LastName:  "Alvarez",
		Email:     "diego@example.com",
		Phone:     "+15550110",
		Source:    models.LeadSourceWebsite,
	}
	err := repo.Create(context.Background(), lead)
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Equal(t, models.PriorityMedium, lead.Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryMarkConverted(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	ts := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leads SET status = $1, converted_case_id = $2, converted_at = $3, updated_at = $3")).
		WithArgs(models.LeadStatusConverted, "case-1", ts, "lead-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.MarkConverted(context.Background(), "lead-1", "case-1", ts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryMarkConvertedAlreadyConverted(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	ts := time.Now().UTC()
	mock.ExpectExec("UPDATE leads SET status").
		WithArgs(models.LeadStatusConverted, "case-2", ts, "lead-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.MarkConverted(context.Background(), "lead-1", "case-2", ts)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryList(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE status IN (.+) ORDER BY created_at DESC LIMIT 50 OFFSET 0").
		WithArgs(models.LeadStatusNew).
		WillReturnRows(leadRows().AddRow(
			"lead-1", "Diego", "Alvarez", "diego@example.com", "+15550110", nil,
			"WEBSITE", "NEW", "MEDIUM", nil, nil, nil, now, now,
		))

	leads, err := repo.List(context.Background(), models.LeadFilter{Status: []models.LeadStatus{models.LeadStatusNew}})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Diego Alvarez", leads[0].FullName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryNotes(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectExec("INSERT INTO lead_notes").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM lead_notes WHERE lead_id").
		WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "lead_id", "author_id", "content", "pinned", "internal", "created_at"}).
			AddRow("note-1", "lead-1", "user-1", "Called back, interested in work permit", false, true, time.Now()))

	err := repo.AddNote(context.Background(), &models.LeadNote{LeadID: "lead-1", AuthorID: "user-1", Content: "Called back, interested in work permit", Internal: true})
	require.NoError(t, err)

	notes, err := repo.ListNotes(context.Background(), "lead-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "lead-1", notes[0].LeadID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
