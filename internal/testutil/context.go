package testutil

import (
	"context"

	"github.com/flexprice/paysync/internal/types"
)

const (
	TestUserEmail = "owner@acme.test"
	OtherTenantID = "tenant_other"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxTenantID, types.DefaultTenantID)
	ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
	ctx = context.WithValue(ctx, types.CtxUserEmail, TestUserEmail)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return ctx
}
