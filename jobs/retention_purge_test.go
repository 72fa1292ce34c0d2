package jobs

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every table the schema soft-deletes must be on the purge list, or
// retired rows for it accumulate forever.
func TestPurgeListCoversEverySoftDeletingTable(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "scripts", "schema.sql"))
	require.NoError(t, err)

	purged := make(map[string]bool, len(purgeTables))
	for _, table := range purgeTables {
		purged[table] = true
	}

	createRe := regexp.MustCompile(`CREATE TABLE IF NOT EXISTS (\w+) \(`)
	blocks := createRe.Split(string(data), -1)
	names := createRe.FindAllStringSubmatch(string(data), -1)
	require.Equal(t, len(blocks)-1, len(names))

	for i, match := range names {
		table := match[1]
		body, _, _ := strings.Cut(blocks[i+1], ");")
		if strings.Contains(body, "deleted_at") {
			assert.True(t, purged[table], "table %s soft-deletes but is missing from purgeTables", table)
		}
	}
}
