package models

import (
	"errors"
	"strconv"
	"strings"
)

var ErrMalformedRoomID = errors.New("malformed room id")

// RoomKey is the parsed form of a room id "<itemId>-<buyerId>".
type RoomKey struct {
	ItemID  int64
	BuyerID int64
}

func (k RoomKey) String() string {
	return FormatRoomID(k.ItemID, k.BuyerID)
}

func FormatRoomID(itemID, buyerID int64) string {
	return strconv.FormatInt(itemID, 10) + "-" + strconv.FormatInt(buyerID, 10)
}

// ParseRoomID splits id at the first '-'. Both halves must be plain decimal
// digits in canonical form, so every room has exactly one spelling; signs,
// spaces, leading zeros and empty halves are rejected.
func ParseRoomID(id string) (RoomKey, error) {
	itemPart, buyerPart, ok := strings.Cut(id, "-")
	if !ok {
		return RoomKey{}, ErrMalformedRoomID
	}
	itemID, err := parseDigits(itemPart)
	if err != nil {
		return RoomKey{}, err
	}
	buyerID, err := parseDigits(buyerPart)
	if err != nil {
		return RoomKey{}, err
	}
	return RoomKey{ItemID: itemID, BuyerID: buyerID}, nil
}

func parseDigits(s string) (int64, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, ErrMalformedRoomID
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrMalformedRoomID
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrMalformedRoomID
	}
	return n, nil
}
