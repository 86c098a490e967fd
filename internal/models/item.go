package models

import "fmt"

type ItemStatus string

const (
	ItemOnSale   ItemStatus = "on_sale"
	ItemSold     ItemStatus = "sold"
	ItemReserved ItemStatus = "reserved"
)

func ParseItemStatus(s string) (ItemStatus, error) {
	switch st := ItemStatus(s); st {
	case ItemOnSale, ItemSold, ItemReserved:
		return st, nil
	}
	return "", fmt.Errorf("unknown item status %q", s)
}

type Item struct {
	ID       int64      `json:"id"`
	OwnerID  int64      `json:"owner_id"`
	Title    string     `json:"title"`
	ImageURL string     `json:"image_url"`
	Status   ItemStatus `json:"status"`
}
