package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashCode(t *testing.T) {
	a := HashCode([]byte("emp_Page0"))
	b := HashCode([]byte("emp_Page0"))
	c := HashCode([]byte("emp_Page1"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestHashStringMatchesHashCode(t *testing.T) {
	assert.Equal(t, HashCode([]byte("emp_Page0")), HashString("emp_Page0"))
}
