package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinePkgHandlerRead(t *testing.T) {
	h := &linePkgHandler{}

	pkg, n, err := h.Read(nil, []byte("LIST TABLES\nLOAD emp\n"))
	require.NoError(t, err)
	assert.Equal(t, "LIST TABLES", pkg)
	assert.Equal(t, len("LIST TABLES\n"), n)

	// A partial command waits for more bytes.
	pkg, n, err = h.Read(nil, []byte("LOAD em"))
	require.NoError(t, err)
	assert.Nil(t, pkg)
	assert.Zero(t, n)

	// CRLF clients are tolerated.
	pkg, _, err = h.Read(nil, []byte("PRINT emp\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "PRINT emp", pkg)
}

func TestLinePkgHandlerWrite(t *testing.T) {
	h := &linePkgHandler{}

	data, err := h.Write(nil, "OK\n")
	require.NoError(t, err)
	assert.Equal(t, []byte("OK\n"), data)

	_, err = h.Write(nil, 42)
	require.Error(t, err)
}
