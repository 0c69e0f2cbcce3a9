package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/xh-polaris/docflow-core-api/biz/infra/config"
)

var (
	ErrMissingToken = errors.New("token not provided")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

var bearer = regexp.MustCompile(`(?i)^bearer\s+`)

// Verifier 校验凭证, 返回用户id
type Verifier interface {
	Verify(token string) (userId string, err error)
}

// JWTVerifier HS256签名的jwt, 用户id放在sub中, 兼容旧token的userId
type JWTVerifier struct {
	secret []byte
	expire time.Duration
}

func NewJWTVerifier(config *config.Config) *JWTVerifier {
	return &JWTVerifier{secret: []byte(config.Auth.SecretKey), expire: time.Duration(config.Auth.AccessExpire) * time.Second}
}

func (v *JWTVerifier) Verify(token string) (string, error) {
	token = bearer.ReplaceAllString(token, "")
	if token == "" {
		return "", ErrMissingToken
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	for _, k := range []string{"sub", "userId"} {
		if uid, ok := claims[k].(string); ok && uid != "" {
			return uid, nil
		}
	}
	return "", fmt.Errorf("%w: sub", ErrMissingClaim)
}

// Sign 签发token, 登录模块和测试使用
func (v *JWTVerifier) Sign(userId string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userId,
		"iat": now.Unix(),
		"exp": now.Add(v.expire).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
