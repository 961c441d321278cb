package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAllowedOrigins(t *testing.T) {
	assert.Nil(t, parseAllowedOrigins(""))
	assert.Equal(t, []string{"*"}, parseAllowedOrigins("*"))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, parseAllowedOrigins(" https://a.example, ,https://b.example "))
}
