package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
)

type memoryCache struct {
	items    map[string][]byte
	patterns []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	m.items = map[string][]byte{}
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := &memoryCache{items: map[string][]byte{}}
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	_, ok := svc.GetRecord(ctx, models.KindBankDetail, "E1", "")
	assert.False(t, ok)

	record := *bankRecord()
	record.OwnerID = "E1"
	svc.PutRecord(ctx, record)
	assert.Contains(t, repo.items, "record:bank-detail:E1:-")

	cached, ok := svc.GetRecord(ctx, models.KindBankDetail, "E1", "")
	require.True(t, ok)
	assert.Equal(t, "HDFC", cached.Data["bankName"])

	require.NoError(t, svc.InvalidateOwner(ctx, models.KindBankDetail, "E1"))
	assert.Equal(t, []string{"record:bank-detail:E1:*"}, repo.patterns)
	_, ok = svc.GetRecord(ctx, models.KindBankDetail, "E1", "")
	assert.False(t, ok)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := &memoryCache{items: map[string][]byte{}}
	svc := NewCacheService(repo, nil, 0, nil, false)
	svc.PutRecord(context.Background(), *bankRecord())
	assert.Empty(t, repo.items)

	var nilSvc *CacheService
	_, ok := nilSvc.GetRecord(context.Background(), models.KindProfile, "E1", "")
	assert.False(t, ok)
	assert.NoError(t, nilSvc.InvalidateOwner(context.Background(), models.KindProfile, "E1"))
}
