package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOperatorDisabled   = errors.New("operator login is disabled")
)

const roleOperator = "operator"

// Service guards the operator seat. There is a single shared operator
// password; every successful login opens a new session.
type Service struct {
	operatorHash string
	jwtSecret    []byte
	jwtTTL       time.Duration
}

type AuthResult struct {
	SessionID uuid.UUID `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewService hashes operatorPassword up front. An empty password disables
// operator logins; spectators need no token.
func NewService(operatorPassword, jwtSecret string, jwtTTL time.Duration) (*Service, error) {
	s := &Service{jwtSecret: []byte(jwtSecret), jwtTTL: jwtTTL}
	if operatorPassword == "" {
		return s, nil
	}
	hash, err := hashPassword(operatorPassword)
	if err != nil {
		return nil, fmt.Errorf("hash operator password: %w", err)
	}
	s.operatorHash = hash
	return s, nil
}

func (s *Service) Login(password string) (AuthResult, error) {
	if s.operatorHash == "" {
		return AuthResult{}, ErrOperatorDisabled
	}
	ok, err := verifyPassword(s.operatorHash, password)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.IssueToken(uuid.New())
}

func (s *Service) IssueToken(sessionID uuid.UUID) (AuthResult, error) {
	now := time.Now().UTC()
	exp := now.Add(s.jwtTTL)
	claims := jwt.MapClaims{
		"sub":  sessionID.String(),
		"role": roleOperator,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return AuthResult{}, fmt.Errorf("sign token: %w", err)
	}
	return AuthResult{SessionID: sessionID, Token: signed, ExpiresAt: exp}, nil
}

// ParseToken returns the operator session a token was issued for.
func (s *Service) ParseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != roleOperator {
		return uuid.Nil, ErrInvalidCredentials
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidCredentials
	}
	sid, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	return sid, nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	const memory = 64 * 1024
	const iterations = 3
	const parallelism = 2
	const keyLength = 32
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", memory, iterations, parallelism, b64Salt, b64Hash), nil
}

func verifyPassword(encodedHash, password string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("invalid hash format")
	}
	var memory uint32
	var iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("parse hash params: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(hash)))
	if len(computed) != len(hash) {
		return false, nil
	}
	var diff byte
	for i := range hash {
		diff |= hash[i] ^ computed[i]
	}
	return diff == 0, nil
}
