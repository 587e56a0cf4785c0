package domain

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMNC(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected MNC
		wantErr  bool
	}{
		{name: "numeric", input: "45", expected: SpecificMNC(45)},
		{name: "numeric with spaces", input: "  7 ", expected: SpecificMNC(7)},
		{name: "asterisk", input: "*", expected: TheWildcardMNC()},
		{name: "star token", input: "star", expected: TheWildcardMNC()},
		{name: "star token uppercase", input: "STAR", expected: TheWildcardMNC()},
		{name: "wildcard token", input: "Wildcard", expected: TheWildcardMNC()},
		{name: "garbage", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseMNC(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.expected), "got %s, want %s", got, tc.expected)
		})
	}
}

// The stored form is also the sort key: '*' (0x2A) orders before any ASCII
// digit, so the wildcard tier always sorts first in listings.
func TestMNCWildcardSortsFirst(t *testing.T) {
	mncs := []MNC{SpecificMNC(45), SpecificMNC(1), TheWildcardMNC(), SpecificMNC(10)}
	sort.Slice(mncs, func(i, j int) bool { return mncs[i].Less(mncs[j]) })

	assert.True(t, mncs[0].Wildcard)
	assert.Equal(t, []string{"*", "1", "10", "45"}, []string{
		mncs[0].String(), mncs[1].String(), mncs[2].String(), mncs[3].String(),
	})
}

func TestMNCJSONRoundTrip(t *testing.T) {
	wildcardJSON, err := json.Marshal(TheWildcardMNC())
	require.NoError(t, err)
	assert.Equal(t, `"*"`, string(wildcardJSON))

	specificJSON, err := json.Marshal(SpecificMNC(4))
	require.NoError(t, err)
	assert.Equal(t, `4`, string(specificJSON))

	var fromString MNC
	require.NoError(t, json.Unmarshal([]byte(`"star"`), &fromString))
	assert.True(t, fromString.Wildcard)

	var fromNumber MNC
	require.NoError(t, json.Unmarshal([]byte(`12`), &fromNumber))
	assert.Equal(t, SpecificMNC(12), fromNumber)

	var invalid MNC
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &invalid))
}

func TestMNCEqual(t *testing.T) {
	assert.True(t, TheWildcardMNC().Equal(TheWildcardMNC()))
	assert.True(t, SpecificMNC(3).Equal(SpecificMNC(3)))
	assert.False(t, SpecificMNC(3).Equal(SpecificMNC(4)))
	// Wildcard never equals a specific code, whatever the code value.
	assert.False(t, TheWildcardMNC().Equal(SpecificMNC(0)))
}
