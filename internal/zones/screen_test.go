package zones

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
)

func TestScreen(t *testing.T) {
	s := Screen()
	assert.Equal(t, "/zones", s.Path)
	assert.Equal(t, 10, s.Config.PageSize)
	assert.ElementsMatch(t, []string{"name", "division", "area", "priority", "status", "createdAt"}, s.Config.Select.Fields())
	assert.Equal(t, liststate.Sort{"createdAt": -1}, s.Config.DefaultSort)
	require.Len(t, s.BulkUpdates, 2)
	assert.Equal(t, liststate.Patch{"status": "publish"}, s.BulkUpdates[0].Patch)
	assert.Len(t, s.Filters[1].Options, len(Divisions))
}

func TestZoneDecodesBackendRecord(t *testing.T) {
	var z Zone
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"z1","name":"Gulshan","division":"Dhaka","priority":2,"status":"publish","createdAt":"2024-03-01T10:00:00Z"}`), &z))
	assert.Equal(t, "z1", z.RecordID())

	cells := make([]string, 0, len(Screen().Columns))
	for _, c := range Screen().Columns {
		cells = append(cells, c.Value(z))
	}
	assert.Equal(t, []string{"Gulshan", "Dhaka", "", "2", "publish", "01 Mar 2024"}, cells)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), z.CreatedAt)
}
