package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Verifier 身份服务对外暴露的唯一能力：校验令牌并返回用户 ID
type Verifier interface {
	VerifyToken(token string) (string, error)
}

// UserClaims 用户令牌载荷，用户 ID 存放在 sub
type UserClaims struct {
	jwt.RegisteredClaims
}

// JWTVerifier 使用共享密钥校验 HS256 令牌
type JWTVerifier struct {
	key    []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{key: []byte(secret), issuer: issuer}
}

// VerifyToken 返回令牌中的用户 ID；过期返回 ErrTokenExpired，其余失败返回 ErrTokenInvalid
func (v *JWTVerifier) VerifyToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrTokenInvalid
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := new(UserClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", errors.Wrap(ErrTokenInvalid, err.Error())
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// GenerateUserJWT 签发用户令牌，供本地调试与测试使用
func GenerateUserJWT(userID string, expire time.Duration, key []byte, issuer string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("generating user jwt token: %w", err)
	}
	return token, nil
}
