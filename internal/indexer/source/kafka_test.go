package source

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
)

func TestEncodeDecodeMessage(t *testing.T) {
	rec, err := EncodeMessage("doc1", "the cat sat")
	require.NoError(t, err)
	assert.Equal(t, "doc1", rec.Key)

	doc := decodeMessage(0, []byte(rec.Key), rec.Value)
	assert.NoError(t, doc.Err)
	assert.Equal(t, "doc1", doc.Name)
	assert.Equal(t, "the cat sat", doc.Text)
}

func TestDecodeMessageFailures(t *testing.T) {
	tomb := decodeMessage(3, []byte("gone"), nil)
	assert.Equal(t, "gone", tomb.Name)
	assert.ErrorIs(t, tomb.Err, apperrors.ErrDocumentUnreadable)

	bad := decodeMessage(4, nil, []byte("{not json"))
	assert.Equal(t, "offset-4", bad.Name)
	assert.ErrorIs(t, bad.Err, apperrors.ErrDocumentUnreadable)
}

func TestDecodeMessagePrefersBodyName(t *testing.T) {
	value, err := json.Marshal(Message{Name: "inner", Text: "x"})
	require.NoError(t, err)
	doc := decodeMessage(0, []byte("outer"), value)
	assert.Equal(t, "inner", doc.Name)
}
