package authz_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jlo00/colonyNetwork/pkg/authz"
	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
)

var (
	founder = contracts.BytesToAddress([]byte{1})
	other   = contracts.BytesToAddress([]byte{2})
	third   = contracts.BytesToAddress([]byte{3})
)

func TestFounderStartsAsSoleAdmin(t *testing.T) {
	r := authz.NewRegistry(founder)

	assert.True(t, r.IsFounder(founder))
	assert.True(t, r.IsAdmin(founder))
	assert.True(t, r.Check(authz.RelationFounder, founder))
	assert.False(t, r.Check(authz.RelationFounder, other))
	assert.Equal(t, 1, r.AdminCount())
	assert.Equal(t, founder, r.Founder())
}

func TestAddAdmin(t *testing.T) {
	r := authz.NewRegistry(founder)

	require.NoError(t, r.AddAdmin(other))
	assert.True(t, r.Check(authz.RelationAdmin, other))
	assert.Equal(t, 2, r.AdminCount())
	assert.Equal(t, []contracts.Address{founder, other}, r.Admins())

	err := r.AddAdmin(other)
	assert.True(t, errors.Is(err, colonyerr.ErrAlreadyAdmin))
	assert.Equal(t, 2, r.AdminCount())

	assert.True(t, errors.Is(r.AddAdmin(contracts.ZeroAddress), colonyerr.ErrInvalidArgument))
}

func TestRemoveAdmin(t *testing.T) {
	r := authz.NewRegistry(founder)
	require.NoError(t, r.AddAdmin(other))

	require.NoError(t, r.RemoveAdmin(other))
	assert.False(t, r.IsAdmin(other))
	assert.Equal(t, 1, r.AdminCount())

	err := r.RemoveAdmin(third)
	assert.True(t, errors.Is(err, colonyerr.ErrNotAdmin))
}

func TestRemoveLastAdminFails(t *testing.T) {
	r := authz.NewRegistry(founder)

	err := r.RemoveAdmin(founder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, colonyerr.ErrLastAdmin))
	assert.Equal(t, colonyerr.ClassInvariant, colonyerr.ClassOf(err))
	assert.True(t, r.IsAdmin(founder))
}

func TestReAddRemovedAdmin(t *testing.T) {
	r := authz.NewRegistry(founder)
	require.NoError(t, r.AddAdmin(other))
	require.NoError(t, r.RemoveAdmin(other))

	require.NoError(t, r.AddAdmin(other))
	assert.True(t, r.IsAdmin(other))
	assert.Equal(t, 2, r.AdminCount())
}

func TestFounderCanBeRemovedWhileOthersRemain(t *testing.T) {
	r := authz.NewRegistry(founder)
	require.NoError(t, r.AddAdmin(other))

	require.NoError(t, r.RemoveAdmin(founder))
	assert.False(t, r.IsAdmin(founder))
	assert.True(t, r.IsFounder(founder))
	assert.True(t, errors.Is(r.RemoveAdmin(other), colonyerr.ErrLastAdmin))
}
