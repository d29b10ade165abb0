package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectDocumentsQueryQuotesTable(t *testing.T) {
	assert.Equal(t, `SELECT id, name, body FROM "documents" ORDER BY id`, selectDocumentsQuery("documents"))
	assert.Equal(t, `SELECT id, name, body FROM "odd""name" ORDER BY id`, selectDocumentsQuery(`odd"name`))
}
