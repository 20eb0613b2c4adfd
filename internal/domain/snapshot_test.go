package domain_test

import (
	"testing"

	"github.com/alejandrodnm/surebet/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSnapshot_CloneIsolation(t *testing.T) {
	snap := domain.ScanSnapshot{
		Opportunities: []domain.Opportunity{{Event: "a", ROI: 1}, {Event: "b", ROI: 2}},
		Warnings:      []string{"w1"},
		TotalFound:    2,
	}

	clone := snap.Clone()
	clone.Opportunities[0].Event = "mutated"
	clone.Warnings[0] = "mutated"

	// Mutar la copia no afecta al snapshot original
	assert.Equal(t, "a", snap.Opportunities[0].Event)
	assert.Equal(t, "w1", snap.Warnings[0])
}

func TestSnapshot_CloneNilSlices(t *testing.T) {
	clone := domain.ScanSnapshot{}.Clone()
	assert.Nil(t, clone.Opportunities)
	assert.Nil(t, clone.Warnings)
}
