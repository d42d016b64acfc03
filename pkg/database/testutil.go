package database

import (
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

// NewMockPool returns a pgxmock pool wired for tests, with cleanup and
// expectation checking registered on the test.
func NewMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("create mock pool: %v", err)
	}

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet mock expectations: %v", err)
		}
		mock.Close()
	})

	return mock
}
