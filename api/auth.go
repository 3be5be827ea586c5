package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/rent-ledger/ledger"
)

type ctxKey int

const callerKey ctxKey = iota

// WithCaller stores the authenticated user on ctx.
func WithCaller(ctx context.Context, id ledger.UserID) context.Context {
	return context.WithValue(ctx, callerKey, id)
}

// CallerFrom returns the authenticated user, or "" if there is none.
func CallerFrom(ctx context.Context) ledger.UserID {
	id, _ := ctx.Value(callerKey).(ledger.UserID)
	return id
}

// Authenticate resolves the caller of every request.
//
// With a secret, the caller comes from an HMAC-signed bearer token: the
// "sub" claim, or "user_id" for tokens issued by older clients. Without a
// secret (development) the X-User-ID header is trusted as is.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				caller ledger.UserID
				err    error
			)
			if len(secret) == 0 {
				caller = ledger.UserID(strings.TrimSpace(r.Header.Get("X-User-ID")))
				if caller == "" {
					err = fmt.Errorf("X-User-ID header not provided")
				}
			} else {
				caller, err = callerFromToken(r, secret)
			}
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func callerFromToken(r *http.Request, secret []byte) (ledger.UserID, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("authorization token not provided")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return ledger.UserID(sub), nil
	}
	switch v := claims["user_id"].(type) {
	case string:
		if v != "" {
			return ledger.UserID(v), nil
		}
	case float64:
		return ledger.UserID(strconv.FormatInt(int64(v), 10)), nil
	}
	return "", fmt.Errorf("token carries no user id")
}
