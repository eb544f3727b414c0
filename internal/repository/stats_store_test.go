package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink-go/internal/model"
	"shortlink-go/internal/repository"
	"shortlink-go/internal/testutil"
)

func TestStatsStoreUpsertAndTotals(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	links := repository.NewGormMappingStore(db)
	stats := repository.NewStatsStore(db)

	link := &model.ShortLink{ShortCode: "abc1234", TargetURL: "https://example.com"}
	require.NoError(t, links.Create(ctx, link))

	require.NoError(t, stats.UpsertDailyStat(ctx, &model.DailyStat{ShortLinkID: link.ID, Date: "2026-10-16", PV: 3, UV: 2}))
	require.NoError(t, stats.UpsertDailyStat(ctx, &model.DailyStat{ShortLinkID: link.ID, Date: "2026-10-17", PV: 1, UV: 1}))
	// 同一天再次同步覆盖
	require.NoError(t, stats.UpsertDailyStat(ctx, &model.DailyStat{ShortLinkID: link.ID, Date: "2026-10-17", PV: 7, UV: 4}))

	rows, err := stats.ListDailyStats(ctx, link.ID, 30)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-10-17", rows[0].Date)
	assert.EqualValues(t, 7, rows[0].PV)
	assert.EqualValues(t, 4, rows[0].UV)

	require.NoError(t, stats.UpdateTotals(ctx, link.ID, 10, 6))
	got, err := links.Get(ctx, "abc1234")
	require.NoError(t, err)
	assert.EqualValues(t, 10, got.TotalPV)
	assert.EqualValues(t, 6, got.TotalUV)
}

func TestDomainStoreSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewDomainStore(testutil.NewSQLiteDB(t))

	require.NoError(t, store.SeedBlockedDomains(ctx, []string{"Evil.example", " evil.example ", "sho.rt", ""}))
	require.NoError(t, store.SeedBlockedDomains(ctx, []string{"sho.rt", "spam.example"}))

	domains, err := store.ListBlockedDomains(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"evil.example", "sho.rt", "spam.example"}, domains)
}
