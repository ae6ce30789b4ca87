package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopePaths(t *testing.T) {
	s, err := ScopeOf(Projects, "client", "42")
	require.NoError(t, err)

	assert.Equal(t, "projects/client/42", s.Key())
	assert.Equal(t, "/projects/client/42", s.ListPath())
	assert.Equal(t, "/projects/9", s.Resource.EntityPath("9"))
	assert.Equal(t, "/projects/9/progress", s.Resource.ActionPath("9", "progress"))

	all, err := ScopeOf(Clients, "", "")
	require.NoError(t, err)
	assert.Equal(t, "clients", all.Key())
	assert.Equal(t, "/clients", all.ListPath())
}

func TestParseScopeKey(t *testing.T) {
	s, err := ParseScopeKey("invoices/client/7")
	require.NoError(t, err)
	assert.Equal(t, Invoices, s.Resource.Name)
	assert.Equal(t, "7", s.ParentID)

	_, err = ParseScopeKey("invoices/client")
	assert.True(t, errors.Is(err, ErrInvalidScope))

	_, err = ParseScopeKey("widgets")
	assert.True(t, errors.Is(err, ErrUnknownResource))
}

func TestResourceRegistry(t *testing.T) {
	for _, name := range ResourceNames() {
		r := MustResource(name)
		assert.NotEmpty(t, r.Path, name)
		assert.NotEmpty(t, r.ListKeys, name)
		assert.NotEmpty(t, r.IDKeys, name)
	}
	assert.Len(t, ResourceNames(), 11)
}

func TestProjectFromEntity_FallbackChains(t *testing.T) {
	p := ProjectFromEntity(Entity{
		"projectId":       "p1",
		"title":           "Website",
		"status":          StatusInProgress,
		"percentComplete": "140",
		"isPinned":        true,
		"start_date":      "2024-01-15",
	})

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Website", p.Name)
	assert.Equal(t, StatusInProgress, p.Status)
	assert.Equal(t, 100, p.Progress)
	assert.True(t, p.Pinned)
	assert.Equal(t, 2024, p.StartDate.Year())
}

func TestInvoiceFromEntity(t *testing.T) {
	inv := InvoiceFromEntity(Entity{
		"invoiceNumber": "INV-1",
		"totalAmount":   "120.50",
		"amountPaid":    float64(20),
	})

	assert.Equal(t, "INV-1", inv.ID)
	assert.Equal(t, int64(12050), inv.Total.Cents)
	assert.Equal(t, int64(10050), inv.Balance().Cents)
}

func TestValidateProjectStatus(t *testing.T) {
	assert.NoError(t, ValidateProjectStatus(StatusCompleted))
	assert.ErrorIs(t, ValidateProjectStatus("DONE"), ErrInvalidStatus)
}
