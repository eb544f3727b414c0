package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shortlink-go/internal/repository"
	"shortlink-go/internal/testutil"
)

type mockDomainSource struct {
	mock.Mock
}

func (m *mockDomainSource) SeedBlockedDomains(ctx context.Context, domains []string) error {
	return m.Called(ctx, domains).Error(0)
}

func (m *mockDomainSource) ListBlockedDomains(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	domains, _ := args.Get(0).([]string)
	return domains, args.Error(1)
}

func TestDomainPolicyIsBlocked(t *testing.T) {
	ctx := context.Background()
	policy, err := NewDomainPolicy(ctx, repository.NewDomainStore(testutil.NewSQLiteDB(t)),
		[]string{"sho.rt", "Evil.Example", "127.0.0.1"})
	require.NoError(t, err)

	assert.True(t, policy.IsBlocked("sho.rt"))
	assert.True(t, policy.IsBlocked("a.b.sho.rt"))
	assert.True(t, policy.IsBlocked("evil.example"))
	assert.True(t, policy.IsBlocked("127.0.0.1"))
	assert.False(t, policy.IsBlocked("example.com"))
	assert.False(t, policy.IsBlocked("notsho.rt"))
	assert.False(t, policy.IsBlocked(""))

	var nilPolicy *DomainPolicy
	assert.False(t, nilPolicy.IsBlocked("sho.rt"))
}

func TestDomainPolicyReload(t *testing.T) {
	ctx := context.Background()
	source := new(mockDomainSource)
	source.On("SeedBlockedDomains", ctx, []string{"sho.rt"}).Return(nil).Once()
	source.On("ListBlockedDomains", ctx).Return([]string{"sho.rt"}, nil).Once()
	source.On("ListBlockedDomains", ctx).Return([]string{"sho.rt", "spam.example"}, nil).Once()

	policy, err := NewDomainPolicy(ctx, source, []string{"sho.rt"})
	require.NoError(t, err)
	assert.False(t, policy.IsBlocked("spam.example"))

	require.NoError(t, policy.Reload(ctx))
	assert.True(t, policy.IsBlocked("spam.example"))
	source.AssertExpectations(t)
}

func TestDomainPolicySeedFailure(t *testing.T) {
	ctx := context.Background()
	source := new(mockDomainSource)
	source.On("SeedBlockedDomains", ctx, mock.Anything).Return(repository.ErrUnavailable)

	_, err := NewDomainPolicy(ctx, source, []string{"sho.rt"})
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	source.AssertNotCalled(t, "ListBlockedDomains", mock.Anything)
}
