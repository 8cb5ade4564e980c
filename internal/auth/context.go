package auth

import "context"

type ctxKey int

const userIDCtxKey ctxKey = 0

func CtxWithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

func UserIDFromCtx(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(userIDCtxKey).(int)
	return userID, ok
}
