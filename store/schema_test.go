package store_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm/schema"

	"watch-rewards-system/models"
)

// postgresColumnType is the column type AutoMigrate creates on Postgres.
func postgresColumnType(t *testing.T, model any, column string) string {
	t.Helper()
	s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	field := s.LookUpField(column)
	require.NotNil(t, field, "%s.%s", s.Table, column)
	return postgres.Dialector{Config: &postgres.Config{}}.DataTypeOf(field)
}

// Joins compare these columns directly, so Postgres needs identical types.
func TestJoinedColumnsShareTypes(t *testing.T) {
	userID := postgresColumnType(t, &models.User{}, "id")
	campaignID := postgresColumnType(t, &models.Campaign{}, "id")

	cases := []struct {
		model  any
		column string
		want   string
	}{
		{&models.Campaign{}, "user_id", userID},
		{&models.Referral{}, "inviter_id", userID},
		{&models.Referral{}, "invitee_id", userID},
		{&models.WatchLog{}, "user_id", userID},
		{&models.WatchLog{}, "campaign_id", campaignID},
		{&models.Payment{}, "user_id", userID},
		{&models.Referral{}, "id", userID},
		{&models.WatchLog{}, "id", userID},
		{&models.Payment{}, "id", userID},
	}
	for _, tc := range cases {
		s, err := schema.Parse(tc.model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)
		t.Run(s.Table+"."+tc.column, func(t *testing.T) {
			assert.Equal(t, tc.want, postgresColumnType(t, tc.model, tc.column))
		})
	}
}
