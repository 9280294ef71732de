package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestFilterSettingsEnabled(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSettingsStore(mock)
	require.NoError(t, err)

	orgID := uuid.New()
	mock.ExpectQuery("SELECT filter_enabled").
		WithArgs(orgID).
		WillReturnRows(pgxmock.NewRows([]string{"filter_enabled"}).AddRow(true))

	settings, err := store.FilterSettings(context.Background(), orgID)
	require.NoError(t, err)
	require.True(t, settings.FilterEnabled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterSettingsDefaultsWhenAbsent(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSettingsStore(mock)
	require.NoError(t, err)

	orgID := uuid.New()
	mock.ExpectQuery("SELECT filter_enabled").
		WithArgs(orgID).
		WillReturnRows(pgxmock.NewRows([]string{"filter_enabled"}))

	settings, err := store.FilterSettings(context.Background(), orgID)
	require.NoError(t, err)
	require.False(t, settings.FilterEnabled)
	require.NoError(t, mock.ExpectationsWereMet())
}
