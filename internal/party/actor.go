package party

import (
	"math"
	"strconv"
	"strings"
)

const maxGuestNameLen = 50

// Actor is the identity performing a queue operation: either an
// authenticated Member or a Guest known only by display name.
type Actor interface {
	isActor()
}

type Member struct {
	UserId int
}

type Guest struct {
	Name string
}

func (Member) isActor() {}
func (Guest) isActor()  {}

// NewActor resolves the caller's identity. An authenticated user always
// takes precedence over a supplied guest name.
func NewActor(userId int, authenticated bool, guestName string) (Actor, error) {
	if authenticated {
		return Member{UserId: userId}, nil
	}

	name := strings.TrimSpace(guestName)
	if name == "" {
		return nil, validationError("guest name is required")
	}
	if len(name) > maxGuestNameLen {
		return nil, validationError("guest name must be at most %d characters", maxGuestNameLen)
	}

	return Guest{Name: name}, nil
}

// ParseId validates a party or song identifier taken from a request.
func ParseId(s string) (int, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 || id > math.MaxInt32 {
		return 0, validationError("invalid id %q", s)
	}

	return int(id), nil
}

func validateId(id int) error {
	if id <= 0 || id > math.MaxInt32 {
		return validationError("invalid id %d", id)
	}
	return nil
}
