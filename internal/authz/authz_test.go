package authz

import (
	"testing"

	"chronicle/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func staffCaller() Caller {
	return Caller{User: &models.User{ID: uuid.New(), Username: "admin", IsStaff: true}}
}

func userCaller() Caller {
	return Caller{User: &models.User{ID: uuid.New(), Username: "user-1"}}
}

func anonymous() Caller {
	return Caller{}
}

func TestIsAdminUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		caller   Caller
		expected Decision
	}{
		{"staff allowed", staffCaller(), Allowed},
		{"plain user forbidden", userCaller(), Forbidden},
		{"anonymous unauthenticated", anonymous(), Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAdminUser(tt.caller, ActionList, uuid.Nil))
		})
	}
}

func TestIsOwnerOrReadOnly(t *testing.T) {
	t.Parallel()

	owner := userCaller()
	other := userCaller()

	t.Run("safe methods always pass", func(t *testing.T) {
		assert.Equal(t, Allowed, IsOwnerOrReadOnly(anonymous(), ActionRetrieve, owner.ID()))
		assert.Equal(t, Allowed, IsOwnerOrReadOnly(other, ActionList, owner.ID()))
	})

	t.Run("owner may mutate", func(t *testing.T) {
		assert.Equal(t, Allowed, IsOwnerOrReadOnly(owner, ActionUpdate, owner.ID()))
		assert.Equal(t, Allowed, IsOwnerOrReadOnly(owner, ActionDestroy, owner.ID()))
	})

	t.Run("non-owner mutation forbidden", func(t *testing.T) {
		assert.Equal(t, Forbidden, IsOwnerOrReadOnly(other, ActionUpdate, owner.ID()))
	})

	t.Run("anonymous mutation unauthenticated", func(t *testing.T) {
		assert.Equal(t, Unauthenticated, IsOwnerOrReadOnly(anonymous(), ActionDestroy, owner.ID()))
	})
}

func TestIsUserSelfOrAdmin(t *testing.T) {
	t.Parallel()

	self := userCaller()
	other := userCaller()

	tests := []struct {
		name     string
		caller   Caller
		owner    uuid.UUID
		action   Action
		expected Decision
	}{
		{"self reads itself", self, self.ID(), ActionRetrieve, Allowed},
		{"self mutates itself", self, self.ID(), ActionUpdate, Allowed},
		{"staff touches anyone", staffCaller(), self.ID(), ActionDestroy, Allowed},
		{"other user reading is forbidden, not unauthenticated", other, self.ID(), ActionRetrieve, Forbidden},
		{"anonymous is unauthenticated even on reads", anonymous(), self.ID(), ActionRetrieve, Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsUserSelfOrAdmin(tt.caller, tt.action, tt.owner))
		})
	}
}

func TestAllComposition(t *testing.T) {
	t.Parallel()

	t.Run("all pass", func(t *testing.T) {
		p := All(IsAuthenticated, IsUserSelf)
		c := userCaller()
		assert.Equal(t, Allowed, p(c, ActionUpdate, c.ID()))
	})

	t.Run("first denial wins", func(t *testing.T) {
		p := All(IsAuthenticated, IsAdminUser)
		assert.Equal(t, Unauthenticated, p(anonymous(), ActionList, uuid.Nil))
		assert.Equal(t, Forbidden, p(userCaller(), ActionList, uuid.Nil))
	})
}

func TestErrMapping(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Err(Allowed))
	assert.Equal(t, "FORBIDDEN", Err(Forbidden).Code)
	assert.Equal(t, "UNAUTHORIZED", Err(Unauthenticated).Code)
}
