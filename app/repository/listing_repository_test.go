package repository

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	assert.NoError(t, err)

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	assert.NoError(t, err)

	return db, mock
}

func TestMarkExpiredListings(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `food_listings` SET")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.MarkExpiredListings()
	assert.NoError(t, err)
	assert.EqualValues(t, 2, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkExpiredListingsPropagatesError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `food_listings` SET")).
		WillReturnError(gorm.ErrInvalidDB)

	_, err := repo.MarkExpiredListings()
	assert.Error(t, err)
}
