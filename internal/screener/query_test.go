package screener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterColumns(t *testing.T) {
	in := []string{"name", "description", "logoid", "close", "type", "typespecs", "volume", "currency", "exchange"}
	assert.Equal(t, []string{"name", "close", "volume"}, FilterColumns(in))
	assert.Empty(t, FilterColumns([]string{"logoid"}))
}

func TestCleanQuery(t *testing.T) {
	query := map[string]any{
		"columns": []any{"name", "description", "close"},
		"range":   []any{0, 100},
		"markets": []any{"america"},
	}
	cleaned, err := CleanQuery(query)
	require.NoError(t, err)
	assert.Equal(t, []any{"name", "close"}, cleaned["columns"])
	assert.Equal(t, query["range"], cleaned["range"])
	assert.Equal(t, []any{"name", "description", "close"}, query["columns"], "input is not modified")

	_, err = CleanQuery(map[string]any{"columns": "name"})
	assert.Error(t, err)
	_, err = CleanQuery(map[string]any{"columns": []any{"name", 3}})
	assert.Error(t, err)

	noColumns, err := CleanQuery(map[string]any{"range": []any{0, 1}})
	require.NoError(t, err)
	_, ok := noColumns["columns"]
	assert.False(t, ok)
}

func TestMarketOf(t *testing.T) {
	tests := []struct {
		name  string
		query map[string]any
		want  string
	}{
		{"single market", map[string]any{"markets": []any{"america"}}, "america"},
		{"several markets", map[string]any{"markets": []any{"america", "uk"}}, "global"},
		{"no markets", map[string]any{}, "global"},
		{"empty markets", map[string]any{"markets": []any{}}, "global"},
		{"wrong type", map[string]any{"markets": "america"}, "global"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarketOf(tt.query))
		})
	}
}
