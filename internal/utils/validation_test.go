package utils_test

import (
	"strings"
	"testing"

	"github.com/SscSPs/shope_lite/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"abc", "alice", "Bob_99", strings.Repeat("a", 20)}
	for _, u := range valid {
		assert.NoError(t, utils.ValidateUsername(u), u)
	}

	invalid := []string{"", "ab", strings.Repeat("a", 21), "al ice", "alice!", "ålice", "a-b-c"}
	for _, u := range invalid {
		assert.Error(t, utils.ValidateUsername(u), u)
	}
}

func TestValidateUsername_Messages(t *testing.T) {
	err := utils.ValidateUsername("ab")
	assert.EqualError(t, err, "username: Username must be 3 to 20 characters")

	err = utils.ValidateUsername("bad name")
	assert.EqualError(t, err, "username: Username can contain only letters, numbers, and underscore")
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, utils.ValidateEmail("alice@x.com"))
	assert.NoError(t, utils.ValidateEmail("a.b+tag@sub.example.org"))
	for _, e := range []string{"", "alice", "alice@", "@x.com", "alice@x", "al ice@x.com"} {
		assert.Error(t, utils.ValidateEmail(e), e)
	}
}

func TestValidateNewPassword(t *testing.T) {
	assert.NoError(t, utils.ValidateNewPassword("secret"))
	assert.Error(t, utils.ValidateNewPassword(""))
	assert.Error(t, utils.ValidateNewPassword("12345"))
	assert.Error(t, utils.ValidateNewPassword(strings.Repeat("x", 73)))
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "john_doe", utils.SanitizeUsername("john.doe"))
	assert.Equal(t, "a__", utils.SanitizeUsername("a"))
	assert.Len(t, utils.SanitizeUsername(strings.Repeat("x", 40)), utils.MaxUsernameLen)
	assert.True(t, utils.IsValidUsername(utils.SanitizeUsername("ünï.cødé")))
}
