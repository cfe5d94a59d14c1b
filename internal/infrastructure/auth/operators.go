package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/iho/cashledger/internal/domain"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Operator is one record of the operators file.
type Operator struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         domain.Role `json:"role"`
	PasswordHash string      `json:"password_hash"`
	Active       bool        `json:"active"`
}

// Directory holds the operators allowed to log in, keyed by lowercased email.
// It is immutable once built.
type Directory struct {
	operators map[string]Operator
}

// NewDirectory validates operators and builds a directory.
func NewDirectory(operators []Operator) (*Directory, error) {
	d := &Directory{operators: make(map[string]Operator, len(operators))}
	for _, op := range operators {
		email := strings.ToLower(strings.TrimSpace(op.Email))
		if email == "" || op.ID == "" {
			return nil, fmt.Errorf("operator %q: id and email are required", op.Name)
		}
		if !op.Role.IsValid() {
			return nil, fmt.Errorf("operator %s: invalid role %q", email, op.Role)
		}
		if op.Role == domain.RoleExecutor && strings.TrimSpace(op.Name) == "" {
			return nil, fmt.Errorf("operator %s: executors need a name", email)
		}
		if _, err := bcrypt.Cost([]byte(op.PasswordHash)); err != nil {
			return nil, fmt.Errorf("operator %s: password_hash is not a bcrypt hash", email)
		}
		if _, dup := d.operators[email]; dup {
			return nil, fmt.Errorf("operator %s: duplicate email", email)
		}
		d.operators[email] = op
	}
	return d, nil
}

// LoadDirectory reads a JSON array of operators from path.
func LoadDirectory(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read operators file: %w", err)
	}

	var operators []Operator
	if err := json.Unmarshal(raw, &operators); err != nil {
		return nil, fmt.Errorf("parse operators file: %w", err)
	}

	return NewDirectory(operators)
}

// Authenticate checks the password against the stored bcrypt hash.
func (d *Directory) Authenticate(email, password string) (*domain.User, error) {
	op, ok := d.operators[strings.ToLower(strings.TrimSpace(email))]

	if !ok || !op.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &domain.User{
		ID:     op.ID,
		Email:  op.Email,
		Name:   op.Name,
		Role:   op.Role,
		Active: op.Active,
	}, nil
}

// Len returns the number of operators.
func (d *Directory) Len() int {
	return len(d.operators)
}

// HashPassword returns the bcrypt hash stored in the operators file.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
