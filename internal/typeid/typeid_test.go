package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesPrefix(t *testing.T) {
	id := NewCellID()
	assert.True(t, strings.HasPrefix(id, PrefixCell+"_"))
	require.NoError(t, Validate(id, PrefixCell))
	assert.NotEqual(t, id, NewCellID())
}

func TestValidateRejectsWrongPrefix(t *testing.T) {
	err := Validate(NewEdgeID(), PrefixCell)
	assert.Error(t, err)

	err = Validate("not-a-typeid", PrefixCell)
	assert.Error(t, err)
}
