package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"featureId":"roads.1","count":3,"dirty":true,"attributes":{"name":"Main"}}`))
	require.NoError(t, err)
	assert.Equal(t, "roads.1", s.String("featureId"))
	assert.Equal(t, 3, s.Int("count"))
	assert.True(t, s.Bool("dirty"))
	assert.Equal(t, "Main", s.Map("attributes").String("name"))
	assert.Nil(t, s.Map("featureId"))
	assert.False(t, s.Has("missing"))

	in := &SignalsInput{RawBody: []byte("{")}
	_, err = in.MustParse()
	assert.Error(t, err)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := Page(items, 2, 2)
	assert.Equal(t, []int{3, 4}, p.Data)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, []string{
		`</x?offset=0&limit=2>; rel="first"`,
		`</x?offset=0&limit=2>; rel="prev"`,
		`</x?offset=4&limit=2>; rel="next"`,
		`</x?offset=4&limit=2>; rel="last"`,
	}, p.PaginationLinks("/x"))

	all := Page(items, 0, 0)
	assert.Len(t, all.Data, 5)

	empty := Page([]int(nil), 3, 10)
	assert.NotNil(t, empty.Data)
	assert.Empty(t, empty.Data)
	assert.Nil(t, Page([]int(nil), 0, 0).PaginationLinks("/x"))
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("roads.1", []ActionDef{
		{Rel: "rollback", Pattern: "/api/v1/session/features/%s/rollback", Method: "POST", Title: "Discard edits"},
	})
	require.Len(t, actions, 1)
	assert.Equal(t, `</api/v1/session/features/roads.1/rollback>; rel="rollback"; method="POST"; title="Discard edits"`, actions[0].LinkHeader())
}
