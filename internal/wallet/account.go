package wallet

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// HandleSuffix is appended to every payment handle.
const HandleSuffix = "@qp"

// Account is a balance-holding identity.
type Account struct {
	ID        uuid.UUID
	Owner     string // external identity, unique
	Name      string
	Handle    string
	Balance   Amount
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount builds a zero-balance account for owner with a handle derived
// from name.
func NewAccount(owner, name string) (*Account, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, ErrInvalidName
	}
	handle, err := HandleFor(name)
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:     uuid.New(),
		Owner:  owner,
		Name:   strings.Join(strings.Fields(name), " "),
		Handle: handle,
	}, nil
}

// HandleFor derives the payment handle for a display name: all whitespace is
// removed, the rest lowercased and suffixed with HandleSuffix.
func HandleFor(name string) (string, error) {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	if b.Len() == 0 {
		return "", ErrInvalidName
	}
	b.WriteString(HandleSuffix)
	return b.String(), nil
}

// NormalizeHandle prepares user input for a handle lookup.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
