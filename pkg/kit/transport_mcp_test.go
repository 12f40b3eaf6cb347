package kit

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type label string

func (l label) String() string { return "label:" + string(l) }

func TestToolText(t *testing.T) {
	for _, tc := range []struct {
		name string
		resp any
		want string
	}{
		{"string", "plain", "plain"},
		{"stringer", label("x"), "label:x"},
		{"json", map[string]int{"n": 1}, `{"n":1}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := toolText(tc.resp)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToolText_Unmarshalable(t *testing.T) {
	_, err := toolText(make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal chan int")
}

func TestNoArgs(t *testing.T) {
	req, err := NoArgs(mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.Nil(t, req)
}
