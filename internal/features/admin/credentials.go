// Package admin — credentials.go: проверка логина и пароля.
// Сервис получает готовые Comparator и не знает, как хранится секрет.
package admin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Comparator проверяет введённую строку. Сравнение точное, с учётом регистра.
type Comparator interface {
	Match(input string) bool
}

// Credentials — пара проверок для двух шагов входа.
type Credentials struct {
	Username Comparator
	Password Comparator
}

// PlainComparator сравнивает с открытым значением в постоянном времени.
type PlainComparator struct {
	expected []byte
}

func NewPlainComparator(expected string) *PlainComparator {
	return &PlainComparator{expected: []byte(expected)}
}

func (c *PlainComparator) Match(input string) bool {
	return subtle.ConstantTimeCompare([]byte(input), c.expected) == 1
}

// Параметры Argon2id для новых хешей.
const (
	argonMemory      uint32 = 64 * 1024 // 64 MB
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
	argonSaltLength         = 16

	// Больше 1 ГБ на одну проверку пароля не выделяем.
	argonMaxMemory uint32 = 1024 * 1024
)

// Argon2idComparator проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
type Argon2idComparator struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// NewArgon2idComparator разбирает хеш один раз при старте,
// чтобы кривой ADMIN_PASSWORD_HASH не всплыл только при первом входе.
func NewArgon2idComparator(encoded string) (*Argon2idComparator, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, fmt.Errorf("некорректный формат хеша Argon2id")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("ошибка парсинга версии Argon2id: %w", err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("неподдерживаемая версия Argon2id: %d", version)
	}

	c := &Argon2idComparator{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &c.memory, &c.iterations, &c.parallelism); err != nil {
		return nil, fmt.Errorf("ошибка парсинга параметров Argon2id: %w", err)
	}
	// argon2.IDKey паникует на t=0, p=0 и m < 8*p.
	if c.iterations < 1 || c.parallelism < 1 {
		return nil, fmt.Errorf("некорректные параметры Argon2id: t=%d, p=%d", c.iterations, c.parallelism)
	}
	if c.memory < 8*uint32(c.parallelism) || c.memory > argonMaxMemory {
		return nil, fmt.Errorf("некорректный параметр памяти Argon2id: m=%d", c.memory)
	}

	var err error
	if c.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("ошибка декодирования соли: %w", err)
	}
	if c.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("ошибка декодирования хеша: %w", err)
	}
	if len(c.hash) == 0 {
		return nil, fmt.Errorf("пустой хеш Argon2id")
	}
	return c, nil
}

func (c *Argon2idComparator) Match(input string) bool {
	computed := argon2.IDKey([]byte(input), c.salt, c.iterations, c.memory, c.parallelism, uint32(len(c.hash)))
	// Сравниваем в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computed, c.hash) == 1
}

// HashPassword строит Argon2id-хеш для ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// CredentialsFromConfig собирает проверки из конфигурации:
// хеш важнее открытого пароля.
func CredentialsFromConfig(username, password, passwordHash string) (Credentials, error) {
	creds := Credentials{Username: NewPlainComparator(username)}
	if passwordHash != "" {
		cmp, err := NewArgon2idComparator(passwordHash)
		if err != nil {
			return Credentials{}, fmt.Errorf("ADMIN_PASSWORD_HASH: %w", err)
		}
		creds.Password = cmp
		return creds, nil
	}
	creds.Password = NewPlainComparator(password)
	return creds, nil
}
