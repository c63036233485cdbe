package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGroup_WithInterface(t *testing.T) {
	iface, mgroup, err := parseGroup("eth0:239.1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "eth0", iface)
	assert.Equal(t, "239.1.2.3", mgroup)
}

func TestParseGroup_WithoutInterface(t *testing.T) {
	iface, mgroup, err := parseGroup("239.1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "", iface)
	assert.Equal(t, "239.1.2.3", mgroup)
}

func TestParseGroup_Invalid(t *testing.T) {
	_, _, err := parseGroup("not-an-address")
	assert.Error(t, err)
}
