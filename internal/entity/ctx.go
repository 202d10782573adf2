package entity

import (
	"context"
)

type (
	CtxKeyIP       struct{}
	CtxKeyDeviceID struct{}
	CtxKeyClaims   struct{}
)

func IPFromCtx(ctx context.Context) string {
	ip, ok := ctx.Value(CtxKeyIP{}).(string)
	if !ok || ip == "" {
		return "unknown"
	}

	return ip
}

func DeviceIDFromCtx(ctx context.Context) string {
	deviceID, ok := ctx.Value(CtxKeyDeviceID{}).(string)
	if !ok {
		return ""
	}

	return deviceID
}

func CtxWithClaims(ctx context.Context, claims AccountClaims) context.Context {
	return context.WithValue(ctx, CtxKeyClaims{}, claims)
}

// ClaimsFromCtx returns the authenticated caller or ErrUnauthorized.
func ClaimsFromCtx(ctx context.Context) (AccountClaims, error) {
	claims, ok := ctx.Value(CtxKeyClaims{}).(AccountClaims)
	if !ok {
		return claims, ErrUnauthorized
	}

	return claims, nil
}
