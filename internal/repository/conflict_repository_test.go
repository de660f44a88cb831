package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-program-import/internal/model"
)

// brokenCommitDriver is a minimal sql driver whose transactions accept every
// statement but fail on commit, the failure mode of a write hitting a dead
// connection at commit time.
type brokenCommitDriver struct{}

func (brokenCommitDriver) Open(string) (driver.Conn, error) { return &brokenCommitConn{}, nil }

type brokenCommitConn struct{}

func (*brokenCommitConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare unsupported")
}
func (*brokenCommitConn) Close() error              { return nil }
func (*brokenCommitConn) Begin() (driver.Tx, error) { return brokenCommitTx{}, nil }

func (*brokenCommitConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return insertedRow{}, nil
}

type insertedRow struct{}

func (insertedRow) LastInsertId() (int64, error) { return 1, nil }
func (insertedRow) RowsAffected() (int64, error) { return 1, nil }

type brokenCommitTx struct{}

var errCommitTorn = errors.New("commit: connection reset")

func (brokenCommitTx) Commit() error   { return errCommitTorn }
func (brokenCommitTx) Rollback() error { return nil }

func init() {
	sql.Register("brokencommit", brokenCommitDriver{})
}

func TestStageReportsCommitFailure(t *testing.T) {
	db, err := sql.Open("brokencommit", "")
	require.NoError(t, err)
	defer db.Close()

	r := NewConflictRepo(db)
	cm := &model.ConflictMovie{
		ImportJobID: 1,
		CinemaID:    2,
		ImportTitle: "Dune Part Two (IMAX, 166 min)",
		MovieName:   "Dune Part Two",
		State:       model.StateToVerify,
	}

	err = r.Stage(context.Background(), cm)
	require.Error(t, err)
	assert.ErrorIs(t, err, errCommitTorn)
}
