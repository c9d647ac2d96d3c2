package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantLen  int
		wantLast bool
	}{
		{"explicit false", `{"content":[1,2],"last":false}`, 2, false},
		{"explicit true", `{"content":[1],"last":true}`, 1, true},
		{"missing last means final page", `{"content":[1,2,3]}`, 3, true},
		{"empty content", `{"content":[],"last":false}`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Page
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Len(t, p.Content, tt.wantLen)
			assert.Equal(t, tt.wantLast, p.Last)
		})
	}
}

func TestCollection_Paths(t *testing.T) {
	for _, c := range AllCollections {
		assert.NotEmpty(t, c.LegacyPath(), "collection %s has no legacy path", c)
		assert.Equal(t, string(c)+".json", c.CacheName())
	}
	assert.False(t, CollectionRegions.Paginated())
	assert.True(t, CollectionApplications.Paginated())
	assert.Equal(t, "getAllApplications", CollectionApplications.LegacyPath())
	assert.Empty(t, Collection("unknown").LegacyPath())
}

func TestStudent_FullName(t *testing.T) {
	assert.Equal(t, "Aarav Raj Patil", Student{FirstName: "Aarav", MiddleName: "Raj", LastName: "Patil"}.FullName())
	assert.Equal(t, "Isha Joshi", Student{FirstName: "Isha", LastName: "Joshi"}.FullName())
}

func TestStudent_WireKeepsContactString(t *testing.T) {
	data, err := json.Marshal(Student{FirstName: "A", LastName: "B", Contact: "7000000001"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"contact":"7000000001"`)
	assert.NotContains(t, string(data), "studentId")
}
