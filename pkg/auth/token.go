package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yola1107/ludo-arbiter/pkg/codes"
)

// Claims 中继连接凭证, Subject 为节点ID
type Claims struct {
	Match string `json:"match"`
	Seat  int32  `json:"seat"`
	jwt.RegisteredClaims
}

// Issue 签发 HS256 token, ttl<=0 表示不过期
func Issue(secret, issuer string, ttl time.Duration, peerID, match string, seat int32) (string, error) {
	now := time.Now()
	claims := &Claims{
		Match: match,
		Seat:  seat,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  peerID,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse 校验签名与签发方
func Parse(secret, issuer, token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, codes.ErrTokenInvalid.WithCause(err)
	}
	if claims.Subject == "" || claims.Match == "" {
		return nil, codes.ErrTokenInvalid.WithCause(fmt.Errorf("missing subject or match"))
	}
	return claims, nil
}

// Peek 不校验签名读取声明, 客户端用来确定自己的身份
func Peek(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, codes.ErrTokenInvalid.WithCause(err)
	}
	return claims, nil
}
