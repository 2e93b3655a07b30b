package database

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_RunsEveryStatementInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.MatchExpectationsInOrder(true)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS documents`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	for range migrations[1:] {
		mock.ExpectExec(`.+`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	db := &DB{Pool: mock}
	require.NoError(t, db.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS documents`).WillReturnError(errors.New("permission denied"))

	db := &DB{Pool: mock}
	err = db.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 1 failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRaw_NilForMock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	db := &DB{Pool: mock}
	assert.Nil(t, db.Raw())
}
