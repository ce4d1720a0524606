package rights

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/exploration/internal/store"
)

var _ Authorizer = (*StoreAuthorizer)(nil)

// StoreAuthorizer reads rights from the store. Admins are fixed at startup.
type StoreAuthorizer struct {
	store  store.RightsStore
	admins mapset.Set[string]
}

func NewStoreAuthorizer(store store.RightsStore, admins ...string) *StoreAuthorizer {
	return &StoreAuthorizer{
		store:  store,
		admins: mapset.NewSet[string](admins...),
	}
}

func (a *StoreAuthorizer) GetRights(ctx context.Context, id string) (*Rights, error) {
	return Load(ctx, a.store, id)
}

func (a *StoreAuthorizer) IsAdmin(userID string) bool {
	return a.admins.Contains(userID)
}
