package fetcher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type regionRow struct {
	Region     string  `json:"Region"`
	NatWalkInd float64 `json:"NatWalkInd"`
}

func TestDecodeJSONArray(t *testing.T) {
	input := `[{"Region":"Austin, TX","NatWalkInd":9.5},{"Region":"Boise, ID","NatWalkInd":7}]`

	ch, errCh := DecodeJSONArray[regionRow](context.Background(), strings.NewReader(input))

	var rows []regionRow
	for rec := range ch {
		rows = append(rows, rec)
	}
	for err := range errCh {
		require.NoError(t, err)
	}

	require.Len(t, rows, 2)
	assert.Equal(t, "Austin, TX", rows[0].Region)
	assert.InDelta(t, 9.5, rows[0].NatWalkInd, 1e-9)
	assert.Equal(t, "Boise, ID", rows[1].Region)
}

func TestCollectJSONArray_Maps(t *testing.T) {
	input := `[{"Region":"A","D1A":"3.2","HH":null},{"Region":"B","D1A":4}]`
	rows, err := CollectJSONArray[map[string]any](context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "3.2", rows[0]["D1A"])
	assert.Nil(t, rows[0]["HH"])
	assert.Equal(t, 4.0, rows[1]["D1A"])
}

func TestCollectJSONArray_Empty(t *testing.T) {
	for _, input := range []string{"", "[]"} {
		rows, err := CollectJSONArray[regionRow](context.Background(), strings.NewReader(input))
		require.NoError(t, err)
		assert.Empty(t, rows)
	}
}

func TestDecodeJSONArray_ContextCancellation(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("[")
	for i := range 10000 {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"Region":"x","NatWalkInd":1}`)
	}
	sb.WriteString("]")

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()
	time.Sleep(5 * time.Millisecond)

	ch, errCh := DecodeJSONArray[regionRow](ctx, strings.NewReader(sb.String()))
	for range ch { //nolint:revive // drain
	}

	var gotErr error
	for err := range errCh {
		if err != nil {
			gotErr = err
		}
	}
	if gotErr != nil {
		assert.Contains(t, gotErr.Error(), "context")
	}
}

func TestDecodeJSONArray_InvalidFormat(t *testing.T) {
	_, err := CollectJSONArray[regionRow](context.Background(), strings.NewReader(`{"Region":"not an array"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected '['")
}
