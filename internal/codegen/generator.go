package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	"go.uber.org/zap"
)

// Alphabet base62 字符集，URL 安全
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	DefaultLength      = 7 // 62^7 ≈ 3.5e12
	DefaultMaxAttempts = 5
	MinLength          = 4
	MaxLength          = 32
)

// ErrGenerationExhausted 连续碰撞达到上限，属于运维级异常
var ErrGenerationExhausted = errors.New("short code generation exhausted")

// Generator 生成候选短码，唯一性由存储层的插入操作裁决
type Generator interface {
	Generate(ctx context.Context) (string, error)
}

type RandomGenerator struct {
	length int
	reader io.Reader
}

func NewRandomGenerator(length int) *RandomGenerator {
	if length < MinLength || length > MaxLength {
		length = DefaultLength
	}
	return &RandomGenerator{length: length, reader: rand.Reader}
}

func (g *RandomGenerator) Length() int {
	return g.length
}

// Generate 使用 crypto/rand 生成定长 base62 短码
func (g *RandomGenerator) Generate(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	code := make([]byte, g.length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range code {
		n, err := rand.Int(g.reader, max)
		if err != nil {
			return "", err
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}

// Claim 生成候选短码并交给 create 落库；create 返回碰撞错误时换新候选重试，最多 maxAttempts 次
func Claim(ctx context.Context, gen Generator, maxAttempts int, create func(code string) error,
	isCollision func(error) bool) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, err := gen.Generate(ctx)
		if err != nil {
			return "", err
		}
		err = create(code)
		if err == nil {
			return code, nil
		}
		if !isCollision(err) {
			return "", err
		}
		zap.L().Warn("Short code collision, retrying",
			zap.String("short_code", code),
			zap.Int("attempt", attempt),
		)
	}
	zap.L().Error("Short code generation exhausted", zap.Int("attempts", maxAttempts))
	return "", ErrGenerationExhausted
}

// IsValid 校验短码格式（仅 base62 字符，长度在允许范围内）
func IsValid(code string) bool {
	if len(code) < MinLength || len(code) > MaxLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'Z') && !(c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}
