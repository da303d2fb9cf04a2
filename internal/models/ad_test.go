package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdPatchApply(t *testing.T) {
	ad := &Ad{Title: "Bike", Price: "100", Location: []string{"Tashkent"}}
	title := "Road bike"

	patch := AdPatch{Title: &title, Category: []string{"sport"}}
	assert.False(t, patch.Empty())
	patch.Apply(ad)

	assert.Equal(t, "Road bike", ad.Title)
	assert.Equal(t, "100", ad.Price)
	assert.Equal(t, []string{"Tashkent"}, ad.Location)
	assert.Equal(t, []string{"sport"}, ad.Category)
	assert.True(t, AdPatch{}.Empty())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleEmployee.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("root").Valid())
}
