package entities

import (
	"strings"
	"time"
)

type VoteType string

const (
	VoteTypeYes VoteType = "YES"
	VoteTypeNo  VoteType = "NO"
)

func ParseVoteType(raw string) (VoteType, bool) {
	switch VoteType(strings.ToUpper(strings.TrimSpace(raw))) {
	case VoteTypeYes:
		return VoteTypeYes, true
	case VoteTypeNo:
		return VoteTypeNo, true
	default:
		return "", false
	}
}

// Vote is immutable once recorded; one per (UserID, AgendaID).
type Vote struct {
	VoteID    string
	AgendaID  string
	UserID    string
	VoteType  VoteType
	CreatedAt time.Time
}

// Voter is the read-only projection of a participant.
type Voter struct {
	UserID string
	Name   string
}
