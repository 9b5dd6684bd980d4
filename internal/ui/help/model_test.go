package help_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/ecotrack-console/internal/keys"
	"github.com/nhle/ecotrack-console/internal/ui/help"
)

func TestViewListsConsoleSections(t *testing.T) {
	m := help.New(keys.DefaultKeyMap(), 160, 80)
	out := m.View()

	for _, s := range keys.DefaultKeyMap().Sections() {
		assert.Contains(t, out, s.Title)
	}
	assert.Contains(t, out, "mark resolved")
	assert.Contains(t, out, "cycle role filter")
}
