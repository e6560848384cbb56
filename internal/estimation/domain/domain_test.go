package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	cases := map[string]string{
		"User Login":          "userlogin",
		"  Payment\tGateway ": "paymentgateway",
		"API\nIntegration":    "apiintegration",
		"":                    "",
		"already-normal":      "already-normal",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTitle(in), "input %q", in)
	}
}

func TestTeam_Canonical(t *testing.T) {
	legacy := Team{Frontend: 2, Backend: 3, Designers: 1}
	c := legacy.Canonical()
	assert.Equal(t, 5, c.Developers)
	assert.Zero(t, c.Frontend)
	assert.Equal(t, 6, legacy.Size())

	modern := Team{Developers: 4, Designers: 1, Frontend: 9}
	assert.Equal(t, 4, modern.Canonical().Developers)
	assert.Equal(t, 5, modern.Size())
}

func TestGroupSuggestions(t *testing.T) {
	modules := GroupSuggestions([]Suggestion{
		{ModuleName: "Auth", Title: "User Login", Duration: 10, Exists: true},
		{ModuleName: "Billing", Title: "Invoices", Duration: 20},
		{ModuleName: "Auth", Title: "Password Reset", Duration: 5},
	})

	if assert.Len(t, modules, 2) {
		assert.Equal(t, "Auth", modules[0].Name)
		assert.Len(t, modules[0].Submodules, 2)
		assert.Equal(t, "userlogin", modules[0].Submodules[0].ProcessedTitle)
		assert.True(t, modules[0].Submodules[0].Exists)
		assert.Equal(t, "Billing", modules[1].Name)
	}

	p := &Project{Modules: modules}
	assert.Equal(t, 35.0, p.TotalHours())
	assert.Len(t, p.Suggestions(), 3)
}

func TestErrorTaxonomy(t *testing.T) {
	up := fmt.Errorf("wrap: %w", Upstream("synonyms", errors.New("timeout")))
	assert.ErrorIs(t, up, ErrUpstream)
	assert.NotErrorIs(t, up, ErrMalformedResponse)

	bad := fmt.Errorf("wrap: %w", Malformed("hours", "not json", errors.New("eof")))
	assert.ErrorIs(t, bad, ErrMalformedResponse)
	assert.NotErrorIs(t, bad, ErrUpstream)

	var ve *ValidationError
	assert.ErrorAs(t, fmt.Errorf("x: %w", Invalid("name", "is required")), &ve)
	assert.Equal(t, "name", ve.Field)
}
