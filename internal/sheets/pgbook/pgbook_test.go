package pgbook

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytmetrics/internal/sheets"
	"fknsrs.biz/p/ytmetrics/internal/sheets/sheetstest"
)

func TestContract(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()

	sheetstest.Run(t, func(t *testing.T) sheets.Workbook {
		w, err := Connect(ctx, dsn)
		require.NoError(t, err)
		t.Cleanup(w.Close)

		_, err = w.pool.Exec(ctx, "truncate sheet_rows")
		require.NoError(t, err)

		return w
	})
}
