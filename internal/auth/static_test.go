package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticAllowlist(t *testing.T) {
	ctx := context.Background()
	authz := NewStatic([]string{"0xAdmin", "  ops  ", ""})

	assert.True(t, authz.IsAdmin(ctx, "0xadmin"))
	assert.True(t, authz.IsAdmin(ctx, "0xADMIN"))
	assert.True(t, authz.IsAdmin(ctx, "ops"))
	assert.False(t, authz.IsAdmin(ctx, "alice"))
	assert.False(t, authz.IsAdmin(ctx, ""))
}

func TestStaticEmptyAllowlistAuthorizesNobody(t *testing.T) {
	authz := NewStatic(nil)
	assert.False(t, authz.IsAdmin(context.Background(), "anyone"))
}
