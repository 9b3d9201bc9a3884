package system_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventhq/invent/internal/domain"
	"github.com/inventhq/invent/internal/store/storetest"
	"github.com/inventhq/invent/internal/store/system"
)

func TestLoad(t *testing.T) {
	b := storetest.NewBackend()
	b.Static.Axis = []domain.Axis{{ID: 1, Name: "Groundwork"}}
	b.CountryList = []domain.Country{{ID: 10, Name: "Kenya"}}
	b.OfficeList = []domain.Office{{ID: 5, Name: "Nairobi", Country: 10}}

	s := system.New(b, nil)
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, 1, s.PlatformDonor().ID)
	assert.Equal(t, 1, s.PlatformOrganisation().ID)
	assert.Len(t, s.Axes(), 1)
	assert.Equal(t, "Kenya", s.Countries()[0].Name)
	assert.Equal(t, "Nairobi", s.Offices()[0].Name)
}

func TestLoadError(t *testing.T) {
	b := storetest.NewBackend()
	boom := errors.New("boom")
	b.Errs["Offices"] = boom

	s := system.New(b, nil)
	err := s.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.Countries())
}

func TestProfileIsCopied(t *testing.T) {
	s := system.New(storetest.NewBackend(), nil)
	assert.Nil(t, s.Profile())

	s.SetProfile(&domain.UserProfile{ID: 7, Member: []int{1}})
	p := s.Profile()
	p.Member[0] = 99
	assert.Equal(t, []int{1}, s.Profile().Member)

	s.UpdateProfile(func(p *domain.UserProfile) { p.Favorite = append(p.Favorite, 3) })
	assert.Equal(t, []int{3}, s.Profile().Favorite)

	s.SetProfile(nil)
	called := false
	s.UpdateProfile(func(*domain.UserProfile) { called = true })
	assert.False(t, called)
}

func TestRefreshProfile(t *testing.T) {
	b := storetest.NewBackend()
	b.User = &domain.UserProfile{ID: 3, Name: "Ada"}

	s := system.New(b, nil)
	require.NoError(t, s.RefreshProfile(context.Background()))
	assert.Equal(t, "Ada", s.Profile().Name)
}

func TestLoadDonorDetailsFetchesOnce(t *testing.T) {
	b := storetest.NewBackend()
	b.DonorDetails[2] = &domain.Donor{ID: 2, Name: "Gates"}

	s := system.New(b, nil)
	ctx := context.Background()
	require.NoError(t, s.LoadDonorDetails(ctx, 1, 2, 2))
	require.NoError(t, s.LoadDonorDetails(ctx, 2))

	var donorCalls int
	for _, c := range b.Calls() {
		if c == "Donor 2" {
			donorCalls++
		}
	}
	assert.Equal(t, 1, donorCalls)
	assert.Len(t, s.DonorDetails(), 2)
}

func TestLoadDonorDetailsUnknown(t *testing.T) {
	s := system.New(storetest.NewBackend(), nil)
	err := s.LoadDonorDetails(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "donor 42")
}

func TestCountryDetails(t *testing.T) {
	b := storetest.NewBackend()
	b.CountryDetails[10] = &domain.Country{ID: 10, Name: "Kenya", CountryQuestions: []domain.Question{{ID: 1}}}

	s := system.New(b, nil)
	_, err := s.CountryDetails(10)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.LoadCountryDetails(context.Background(), 10))
	c, err := s.CountryDetails(10)
	require.NoError(t, err)
	assert.Len(t, c.CountryQuestions, 1)
}

func TestFork(t *testing.T) {
	shared := storetest.NewBackend()
	shared.CountryList = []domain.Country{{ID: 10, Name: "Kenya"}}
	shared.DonorDetails[2] = &domain.Donor{ID: 2, Name: "Gates"}

	base := system.New(shared, nil)
	ctx := context.Background()
	require.NoError(t, base.Load(ctx))
	require.NoError(t, base.LoadDonorDetails(ctx, 1))

	user := storetest.NewBackend()
	user.DonorDetails[2] = &domain.Donor{ID: 2, Name: "Gates"}
	f := base.Fork(user)
	assert.Nil(t, f.Profile())
	assert.Equal(t, "Kenya", f.Countries()[0].Name)
	assert.Len(t, f.DonorDetails(), 1)

	require.NoError(t, f.LoadDonorDetails(ctx, 1, 2))
	assert.Equal(t, []string{"Donor 2"}, user.Calls(), "details loaded by the base are not refetched")
	assert.Len(t, f.DonorDetails(), 2)
	assert.Len(t, base.DonorDetails(), 1, "the fork does not write back")
}
