package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    Ref
		wantErr bool
	}{
		{name: "collection and id", path: "users/abc123", want: Ref{Collection: "users", ID: "abc123"}},
		{name: "leading slash", path: "/users/abc123", want: Ref{Collection: "users", ID: "abc123"}},
		{name: "nested collection", path: "orgs/o1/users/u1", want: Ref{Collection: "orgs/o1/users", ID: "u1"}},
		{name: "missing id", path: "users", wantErr: true},
		{name: "trailing slash only", path: "users/", wantErr: true},
		{name: "empty", path: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRef(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Collection+"/"+tt.want.ID, got.Path())
		})
	}
}

func TestPatternMatch(t *testing.T) {
	p := MustParsePattern("users/{userId}")

	params, ok := p.Match("users/abc123")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"userId": "abc123"}, params)

	_, ok = p.Match("accounts/abc123")
	assert.False(t, ok, "literal segment must match")

	_, ok = p.Match("users/abc123/settings/x")
	assert.False(t, ok, "segment count must match")

	_, ok = p.Match("users/")
	assert.False(t, ok, "empty capture must not match")
}

func TestParsePatternRejectsBadInput(t *testing.T) {
	for _, raw := range []string{"", "/", "users//{id}", "users/{}", "a/{id}/b/{id}"} {
		_, err := ParsePattern(raw)
		assert.ErrorIs(t, err, ErrInvalidPath, raw)
	}
}

func TestFieldsMerge(t *testing.T) {
	base := Fields{"nickname": "x", "role": "admin"}
	merged := base.Merge(Fields{"role": "guest"})

	assert.Equal(t, Fields{"nickname": "x", "role": "guest"}, merged)
	assert.Equal(t, "admin", base["role"], "merge must not mutate the receiver")

	var empty Fields
	assert.Equal(t, Fields{"role": "guest"}, empty.Merge(Fields{"role": "guest"}))
}
