package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidNodeTypes(t *testing.T) {
	for _, nt := range []NodeType{NodeDict, NodeList, NodeFloat, NodeInt, NodeStr, NodeArray, NodeStructure, NodeCalcFunction} {
		assert.True(t, ValidNodeTypes[nt], "%s should be valid", nt)
	}
	assert.False(t, ValidNodeTypes["data.core.bool"])
}

func TestNodeTypeIsProcess(t *testing.T) {
	assert.True(t, NodeCalcFunction.IsProcess())
	assert.False(t, NodeStructure.IsProcess())
}

func TestNodeRecordRoundTrip(t *testing.T) {
	rec := NodeRecord{
		PK:   3,
		UUID: "0192f0c1-0000-7000-8000-000000000001",
		Type: NodeStructure,
		Attributes: IRObject{
			"cell": IRArray{FloatArray([]float64{5, 0, 0})},
			"pbc":  IRArray{IRBool(true)},
		},
		Hash: "abc",
		Seq:  7,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded NodeRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rec, decoded)
}

func TestLinkJSONFieldNaming(t *testing.T) {
	data, err := json.Marshal(Link{InputUUID: "a", OutputUUID: "b", Type: LinkCreate, Label: ResultLabel})
	require.NoError(t, err)
	assert.Equal(t, `{"id":0,"input_uuid":"a","output_uuid":"b","link_type":"create","label":"result"}`, string(data))
}
