package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Verifier проверяет bearer credential и извлекает идентификатор пользователя.
// Секрет подписи передаётся явно при конструировании: никаких глобальных
// переменных или чтения окружения внутри компонента.
type Verifier struct {
	secret []byte
}

// NewVerifier создаёт Verifier с заданным секретом подписи HS256.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: verification secret is required")
	}
	return &Verifier{secret: secret}, nil
}

// Verify валидирует credential и возвращает userID из claim `sub`.
// Нет состояния и побочных эффектов: безопасно для конкурентных вызовов.
func (v *Verifier) Verify(credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", domain.ErrMissingCredential
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(credential, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", domain.ErrInvalidCredential
	}

	if claims.Subject == "" {
		return "", domain.ErrInvalidCredential
	}

	return claims.Subject, nil
}

// IssueToken выпускает подписанный токен для пользователя. Используется
// в тестах и локальной разработке; выпуск боевых токенов — зона identity provider.
func (v *Verifier) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
