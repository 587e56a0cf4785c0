package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

func TestResolveRatesForCountryAndConnector_FullCoverage(t *testing.T) {
	catalog := new(MockPrefixCatalogRepository)
	rates := new(MockRateTableRepository)
	resolver := NewRateResolver(catalog, rates, domain.DefaultMCCDirectory(), testLogger())

	groups := make([]domain.OperatorGroup, 5)
	for i := range groups {
		groups[i] = domain.OperatorGroup{
			Country:      "India",
			CountryCode:  91,
			MCC:          404,
			OperatorName: fmt.Sprintf("Operator %d", i+1),
			MNC:          domain.SpecificMNC(i + 1),
		}
	}
	page := domain.PageRequest{PageSize: domain.PageSizeAll}
	catalog.On("ListUniqueOperators", mock.Anything, "India", "", page).Return(groups, 5, nil)

	now := time.Now()
	// Only three of the five pairs are priced.
	for i := 1; i <= 3; i++ {
		rates.On("FindRateWithWildcardFallback", mock.Anything, 404, domain.SpecificMNC(i), "conn1").
			Return(&domain.RateRecord{MCC: 404, MNC: domain.SpecificMNC(i), ConnectorID: "conn1", Rate: 0.01 * float64(i), UpdatedAt: now}, nil)
	}
	for i := 4; i <= 5; i++ {
		rates.On("FindRateWithWildcardFallback", mock.Anything, 404, domain.SpecificMNC(i), "conn1").
			Return(nil, fmt.Errorf("%w: no rate", domain.ErrNotFound))
	}

	result, err := resolver.ResolveRatesForCountryAndConnector(context.Background(), "India", "conn1", "", page)
	require.NoError(t, err)

	// Unpriced pairs still appear, with a nil rate.
	require.Len(t, result.Rates, 5)
	assert.Equal(t, 5, result.Total)
	priced := 0
	for _, row := range result.Rates {
		if row.HasRate {
			priced++
			require.NotNil(t, row.Rate)
		} else {
			assert.Nil(t, row.Rate)
			assert.Nil(t, row.UpdatedAt)
		}
	}
	assert.Equal(t, 3, priced)
	catalog.AssertExpectations(t)
	rates.AssertExpectations(t)
}

func TestResolveRatesForCountryAndConnector_Validation(t *testing.T) {
	resolver := NewRateResolver(new(MockPrefixCatalogRepository), new(MockRateTableRepository), domain.DefaultMCCDirectory(), testLogger())

	_, err := resolver.ResolveRatesForCountryAndConnector(context.Background(), "", "conn1", "", domain.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = resolver.ResolveRatesForCountryAndConnector(context.Background(), "India", "", "", domain.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestResolveRatesForConnector_Labels(t *testing.T) {
	rates := new(MockRateTableRepository)
	resolver := NewRateResolver(new(MockPrefixCatalogRepository), rates, domain.DefaultMCCDirectory(), testLogger())

	rates.On("ListByConnector", mock.Anything, "conn1").Return([]domain.RateRecord{
		{MCC: 404, MNC: domain.TheWildcardMNC(), ConnectorID: "conn1", Rate: 0.02},
		{MCC: 404, MNC: domain.SpecificMNC(1), ConnectorID: "conn1", Rate: 0.015, Label: "Airtel India"},
		{MCC: 999, MNC: domain.SpecificMNC(9), ConnectorID: "conn1", Rate: 0.05},
	}, nil)

	rows, err := resolver.ResolveRatesForConnector(context.Background(), "conn1")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "India", rows[0].Country)
	assert.Equal(t, "India (All Networks)", rows[0].Operator)
	assert.Equal(t, "Airtel India", rows[1].Operator)
	// Unknown MCCs still get a usable label.
	assert.Equal(t, "Unknown", rows[2].Country)
	assert.Equal(t, "MCC-999/MNC-9", rows[2].Operator)
}
